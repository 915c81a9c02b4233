package chat

import (
	"fmt"
	"strings"
)

// Language is a display language code.
type Language string

const (
	English  Language = "en"
	Hindi    Language = "hi"
	Marathi  Language = "mr"
	Gujarati Language = "gu"
	Tamil    Language = "ta"
	Telugu   Language = "te"
	Kannada  Language = "kn"
	Bengali  Language = "bn"
)

var welcome = map[Language]string{
	English:  "Hello! I am ArithMitra. How can I help you with your finances today?",
	Hindi:    "नमस्ते! मैं अरिथमित्र हूँ। मैं आपकी वित्तीय सहायता कैसे कर सकता हूँ?",
	Marathi:  "नमस्कार! मी अरिथमित्र आहे. मी तुम्हाला आर्थिक बाबींमध्ये कशी मदत करू शकतो?",
	Gujarati: "નમસ્તે! હું અરિથમિત્ર છું. હું તમારી નાણાકીય બાબતોમાં કેવી રીતે મદદ કરી શકું?",
	Tamil:    "வணக்கம்! நான் அரித்மித்ரா. உங்கள் நிதியில் நான் எவ்வாறு உதவ முடியும்?",
	Telugu:   "హలో! నేను అరిథ్‌మిత్రాని. మీ ఆర్థిక వ్యవహారాల్లో నేను ఎలా సహాయపడగలను?",
	Kannada:  "ನಮಸ್ಕಾರ! ನಾನು ಅರಿತ್‌ಮಿತ್ರ. ನಿಮ್ಮ ಹಣಕಾಸಿನ ವಿಷಯದಲ್ಲಿ ನಾನು ಹೇಗೆ ಸಹಾಯ ಮಾಡಬಹುದು?",
	Bengali:  "হ্যালো! আমি আরিথমিত্র। আমি কিভাবে আপনার আর্থিক বিষয়ে সাহায্য করতে পারি?",
}

// Languages returns the supported languages.
func Languages() []Language {
	return []Language{English, Hindi, Marathi, Gujarati, Tamil, Telugu, Kannada, Bengali}
}

// ParseLanguage accepts a language code in any case.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := welcome[lang]; !ok {
		return "", fmt.Errorf("chat: unsupported language %q", s)
	}
	return lang, nil
}

// Welcome returns the greeting for lang, English for unknown codes.
func Welcome(lang Language) string {
	if text, ok := welcome[lang]; ok {
		return text
	}
	return welcome[English]
}
