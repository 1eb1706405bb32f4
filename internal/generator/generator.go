// Package generator produces credentials for batch-created accounts.
// Everything here is pure apart from the randomness source.
package generator

import (
	"fmt"
	"math/rand"
)

const (
	lowercase = "abcdefghijklmnopqrstuvwxyz"
	uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits    = "0123456789"
	symbols   = "!@#$%^&*"

	// PasswordLength is fixed; consumers and tests rely on it.
	PasswordLength = 12
)

var usernamePrefixes = []string{"gamer", "player", "user", "pro", "master"}

var phonePrefixes = []string{"03", "05", "07", "08", "09"}

// Username returns prefix+separator+counter when a custom prefix is given,
// otherwise a random word prefix followed by 6 random digits.
func Username(prefix, separator string, counter int) string {
	if prefix != "" && counter > 0 {
		return fmt.Sprintf("%s%s%d", prefix, separator, counter)
	}
	word := usernamePrefixes[rand.Intn(len(usernamePrefixes))]
	return fmt.Sprintf("%s%06d", word, rand.Intn(900000)+100000)
}

// Password returns a 12-character password containing at least one
// lowercase letter, one uppercase letter, one digit and one symbol. One
// character from each class is seeded before the random fill, then the
// result is shuffled; naive sampling from the union set alone can miss a
// class entirely.
func Password() string {
	chars := make([]byte, 0, PasswordLength)
	chars = append(chars,
		lowercase[rand.Intn(len(lowercase))],
		uppercase[rand.Intn(len(uppercase))],
		digits[rand.Intn(len(digits))],
		symbols[rand.Intn(len(symbols))],
	)

	all := lowercase + uppercase + digits + symbols
	for len(chars) < PasswordLength {
		chars = append(chars, all[rand.Intn(len(all))])
	}

	rand.Shuffle(len(chars), func(i, j int) {
		chars[i], chars[j] = chars[j], chars[i]
	})
	return string(chars)
}

// Phone returns a mock Vietnamese-style phone number. Purely cosmetic;
// never validated anywhere.
func Phone() string {
	prefix := phonePrefixes[rand.Intn(len(phonePrefixes))]
	middle := rand.Intn(9000) + 1000
	end := rand.Intn(9000) + 1000
	return fmt.Sprintf("+84-%s%d-%d-%d", prefix, middle/1000, middle%1000, end)
}
