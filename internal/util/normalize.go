package util

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// NormalizeHeader trims a sheet header and title-cases it:
// " email address " -> "Email Address", "STATUS" -> "Status".
func NormalizeHeader(h string) string {
	return titleCaser.String(strings.TrimSpace(h))
}

// NormalizeRecipient extracts a deliverable address from a sheet cell.
// - Accepts bare addresses and "Name <user@Example.COM>" forms
// - Lowercases the domain only; the local part is left alone
// Returns empty string if parsing fails or the address is missing.
func NormalizeRecipient(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return ""
	}
	addr, err := mail.ParseAddress(cell)
	if err != nil || addr == nil {
		return ""
	}

	email := strings.TrimSpace(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// SplitAddresses splits a comma separated address list, dropping blanks.
func SplitAddresses(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
