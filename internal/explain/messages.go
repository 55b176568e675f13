package explain

import "fmt"

// UnavailableMessage is the apology shown when no explanation could be
// produced, localized like every other fixed message.
func UnavailableMessage() LocalizedText {
	return LocalizedText{
		English: "Could not get an explanation right now. Please try again later.",
		Nepali:  "अहिले व्याख्या प्राप्त गर्न सकिएन। कृपया केही समयपछि फेरि प्रयास गर्नुहोस्।",
	}
}

func notFoundMessage() LocalizedText {
	return LocalizedText{
		English: "User not found.",
		Nepali:  "प्रयोगकर्ता फेला परेन।",
	}
}

func activeMessage(username string) LocalizedText {
	return LocalizedText{
		English: fmt.Sprintf(
			"Hello, %s. Your account is currently active. If you are experiencing issues, please contact support.",
			username),
		Nepali: fmt.Sprintf(
			"नमस्कार %s। तपाईंको खाता हाल सक्रिय छ। यदि तपाईंलाई कुनै समस्या छ भने, कृपया सहायता केन्द्रमा सम्पर्क गर्नुहोस्।",
			username),
	}
}

func escalationMessage(username string) LocalizedText {
	return LocalizedText{
		English: fmt.Sprintf(
			"Hello, %s. Our system detected unusual activity or too many failed attempts. "+
				"Your account has been temporarily locked for security reasons. Please contact support to unlock it.",
			username),
		Nepali: fmt.Sprintf(
			"नमस्कार %s। हाम्रो प्रणालीले असामान्य गतिविधि वा धेरै पटक गलत प्रयासहरू पत्ता लगाएको छ। "+
				"तपाईंको खाता सुरक्षाको कारण अस्थायी रूपमा लक गरिएको छ। कृपया खाता अनलक गर्न सहायता केन्द्रमा सम्पर्क गर्नुहोस्।",
			username),
	}
}
