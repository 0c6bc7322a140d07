package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Limit is a request allowance that is either a finite count or unlimited.
// The zero value is a finite limit of 0.
type Limit struct {
	n         int
	unlimited bool
}

func Unlimited() Limit { return Limit{unlimited: true} }

func LimitOf(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n}
}

func (l Limit) IsUnlimited() bool { return l.unlimited }

// Value returns the finite count; ok is false for unlimited.
func (l Limit) Value() (n int, ok bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Sub returns what is left after used requests, floored at zero.
func (l Limit) Sub(used int) Limit {
	if l.unlimited {
		return l
	}
	return LimitOf(l.n - used)
}

// Exhausted reports whether no requests are left.
func (l Limit) Exhausted() bool {
	return !l.unlimited && l.n <= 0
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(l.n)
}

// MarshalJSON encodes unlimited as null, which is how the extension already
// receives the pro allowance.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(l.n)), nil
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`"unlimited"`)) {
		*l = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = LimitOf(n)
	return nil
}

// ParseLimit reverses String.
func ParseLimit(s string) (Limit, error) {
	if s == "unlimited" {
		return Unlimited(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Limit{}, err
	}
	return LimitOf(n), nil
}
