// Package utils holds small helpers for keeping personal data and
// credentials out of logs.
package utils

import (
	"net/url"
	"strings"
)

const maskChar = "*"

// MaskEmail keeps the first two characters of the local part and the domain,
// which is enough to correlate log lines for one account.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" {
		return maskTail(email, 2)
	}
	if len(local) <= 2 {
		return "**@" + domain
	}
	return local[:2] + strings.Repeat(maskChar, len(local)-2) + "@" + domain
}

// MaskPhone hides every digit except the last four and keeps separators.
func MaskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 4 {
		return strings.Repeat(maskChar, len(phone))
	}

	var b strings.Builder
	seen := 0
	for _, r := range phone {
		if r < '0' || r > '9' {
			b.WriteRune(r)
			continue
		}
		seen++
		if seen <= digits-4 {
			b.WriteString(maskChar)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskToken shows the start of a JWT header and the end of its signature.
// Anything that is not a JWT keeps only its first and last four characters.
func MaskToken(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) == 3 {
		head, sig := parts[0], parts[2]
		if len(head) > 6 {
			head = head[:6]
		}
		if len(sig) > 4 {
			sig = sig[len(sig)-4:]
		}
		return head + "***.***.***" + sig
	}
	if len(token) < 12 {
		return strings.Repeat(maskChar, len(token))
	}
	return token[:4] + strings.Repeat(maskChar, len(token)-8) + token[len(token)-4:]
}

// MaskConnectionString replaces the password of a URL style DSN.
func MaskConnectionString(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "xxx")
	return strings.Replace(u.String(), ":xxx@", ":***@", 1)
}

func maskTail(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat(maskChar, len(s))
	}
	return s[:keep] + strings.Repeat(maskChar, len(s)-keep)
}
