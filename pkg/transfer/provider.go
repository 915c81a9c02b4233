package transfer

// Settlement classifies how a provider settles a transfer.
type Settlement string

const (
	SettlementWallet  Settlement = "wallet"
	SettlementUPI     Settlement = "upi"
	SettlementGateway Settlement = "gateway"
)

// RequiresPIN reports whether the settlement needs the PIN capture step.
func (s Settlement) RequiresPIN() bool {
	return s == SettlementUPI
}

// Provider is an entry of the fixed payment method registry.
type Provider struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Settlement Settlement `json:"settlement"`
}

var providers = []Provider{
	{ID: "wallet", Name: "Wallet", Settlement: SettlementWallet},
	{ID: "gpay", Name: "GPay", Settlement: SettlementUPI},
	{ID: "phonepe", Name: "PhonePe", Settlement: SettlementUPI},
	{ID: "paytm", Name: "Paytm", Settlement: SettlementUPI},
	{ID: "razorpay", Name: "Razorpay", Settlement: SettlementGateway},
}

// Providers returns the registry in display order.
func Providers() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}

// LookupProvider finds a provider by id.
func LookupProvider(id string) (Provider, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}
