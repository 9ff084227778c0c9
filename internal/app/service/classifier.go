package service

import (
	"strings"

	"github.com/sifan077/paylink/internal/app/model"
)

var iosTokens = []string{"iPhone", "iPad", "iPod"}

// Classify maps a User-Agent to a client category. Matching is a case-sensitive
// substring test; anything unrecognised, including an empty header, is desktop.
func Classify(userAgent string) model.ClientCategory {
	if userAgent == "" {
		return model.ClientDesktop
	}
	for _, token := range iosTokens {
		if strings.Contains(userAgent, token) {
			return model.ClientIOS
		}
	}
	if strings.Contains(userAgent, "Android") {
		return model.ClientAndroid
	}
	return model.ClientDesktop
}
