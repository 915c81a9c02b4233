package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FraudResult is the verdict on a suspicious message.
type FraudResult struct {
	IsFraud     bool    `json:"isFraud"`
	RiskScore   float64 `json:"riskScore"`
	Explanation string  `json:"explanation"`
	Advice      string  `json:"advice"`
}

// LoanStatus is the eligibility band returned by the model.
type LoanStatus string

const (
	LoanHigh   LoanStatus = "High"
	LoanMedium LoanStatus = "Medium"
	LoanLow    LoanStatus = "Low"
)

// LoanInput holds the figures of a loan eligibility request.
type LoanInput struct {
	Income      float64 `json:"income" validate:"gt=0"`
	CreditScore float64 `json:"creditScore" validate:"gte=300,lte=900"`
	ExistingEMI float64 `json:"existingEmi" validate:"gte=0"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Tenure      float64 `json:"tenure" validate:"gte=1,lte=30"`
}

// LoanResult is the eligibility assessment.
type LoanResult struct {
	EligibilityScore float64    `json:"eligibilityScore"`
	Status           LoanStatus `json:"status"`
	Reasoning        string     `json:"reasoning"`
	Tips             []string   `json:"tips"`
}

// Wire shapes use pointers so a missing field is told apart from a zero value.
type fraudWire struct {
	IsFraud     *bool    `json:"isFraud" validate:"required"`
	RiskScore   *float64 `json:"riskScore" validate:"required,gte=0,lte=100"`
	Explanation *string  `json:"explanation" validate:"required"`
	Advice      *string  `json:"advice" validate:"required"`
}

type loanWire struct {
	EligibilityScore *float64 `json:"eligibilityScore" validate:"required,gte=0,lte=100"`
	Status           *string  `json:"status" validate:"required,oneof=High Medium Low"`
	Reasoning        *string  `json:"reasoning" validate:"required"`
	Tips             []string `json:"tips" validate:"required"`
}

var fraudSchema = Schema{Fields: []Field{
	{Name: "isFraud", Type: TypeBoolean},
	{Name: "riskScore", Type: TypeNumber, Description: "0 to 100, where 100 is high risk"},
	{Name: "explanation", Type: TypeString},
	{Name: "advice", Type: TypeString},
}}

var loanSchema = Schema{Fields: []Field{
	{Name: "eligibilityScore", Type: TypeNumber, Description: "0 to 100 probability"},
	{Name: "status", Type: TypeString, Enum: []string{string(LoanHigh), string(LoanMedium), string(LoanLow)}},
	{Name: "reasoning", Type: TypeString},
	{Name: "tips", Type: TypeStringArray},
}}

func fraudPrompt(text string) string {
	return fmt.Sprintf("Analyze the following text (SMS/Email) for potential financial fraud, phishing, or scam attempts. Text: %q", text)
}

func loanPrompt(in LoanInput) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return "Evaluate loan eligibility for a user with:\n" +
		"- Monthly Income: " + f(in.Income) + "\n" +
		"- Credit Score: " + f(in.CreditScore) + "\n" +
		"- Existing Monthly EMIs: " + f(in.ExistingEMI) + "\n" +
		"- Requested Loan Amount: " + f(in.Amount) + "\n" +
		"- Loan Tenure: " + f(in.Tenure) + " years.\n\n" +
		"Provide a realistic assessment based on standard financial risk models."
}

// decodeStrict decodes exactly one JSON object with no unknown fields and
// validates it.
func decodeStrict(v *validator.Validate, data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after object", ErrInvalidResponse)
	}
	if err := v.Struct(out); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidResponse, describe(err))
	}
	return nil
}

func decodeFraud(v *validator.Validate, data []byte) (*FraudResult, error) {
	var w fraudWire
	if err := decodeStrict(v, data, &w); err != nil {
		return nil, err
	}
	return &FraudResult{
		IsFraud:     *w.IsFraud,
		RiskScore:   *w.RiskScore,
		Explanation: *w.Explanation,
		Advice:      *w.Advice,
	}, nil
}

func decodeLoan(v *validator.Validate, data []byte) (*LoanResult, error) {
	var w loanWire
	if err := decodeStrict(v, data, &w); err != nil {
		return nil, err
	}
	return &LoanResult{
		EligibilityScore: *w.EligibilityScore,
		Status:           LoanStatus(*w.Status),
		Reasoning:        *w.Reasoning,
		Tips:             w.Tips,
	}, nil
}

// validateLoanInput checks the figures before any call is made.
func validateLoanInput(v *validator.Validate, in LoanInput) error {
	for name, value := range map[string]float64{
		"income":      in.Income,
		"creditScore": in.CreditScore,
		"existingEmi": in.ExistingEMI,
		"amount":      in.Amount,
		"tenure":      in.Tenure,
	} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, name)
		}
	}
	if err := v.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
	}
	return nil
}

// describe turns validator errors into "field tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			parts[i] = fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		} else {
			parts[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return strings.Join(parts, ", ")
}

// newValidator reports JSON field names in errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
