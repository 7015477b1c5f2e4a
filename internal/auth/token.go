package auth

// Token is an opaque credential. It deliberately does not expose its value through
// String or formatting verbs so tokens cannot leak into log output by accident.
type Token struct {
	value string
}

// NewToken wraps a raw credential string.
func NewToken(value string) Token {
	return Token{value: value}
}

// Reveal returns the raw credential for placement in an Authorization header.
func (t Token) Reveal() string {
	return t.value
}

// IsZero reports whether the token is empty.
func (t Token) IsZero() bool {
	return t.value == ""
}

// String implements fmt.Stringer and always redacts.
func (t Token) String() string {
	if t.value == "" {
		return ""
	}
	return "[redacted]"
}

// GoString keeps %#v output redacted as well.
func (t Token) GoString() string {
	return "auth.Token{" + t.String() + "}"
}
