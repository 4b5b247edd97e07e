package core

// Secret holds an API key and keeps it out of logs, fmt output and serialized
// config. Only Expose returns the real value.
//
//	key := NewSecret("sk-ant-...")
//	fmt.Println(key)    // [REDACTED]
//	key.Expose()        // sk-ant-...
type Secret struct {
	value string
}

// NewSecret creates a new Secret from a string value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// String implements fmt.Stringer with a redacted placeholder.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v.
func (s Secret) GoString() string {
	return "core.Secret{[REDACTED]}"
}

// MarshalJSON always emits the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// MarshalText always emits the redacted placeholder, which also covers YAML.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// UnmarshalText loads a secret from config files (YAML api_key fields).
// The placeholder written by MarshalText never round-trips into a real key.
func (s *Secret) UnmarshalText(text []byte) error {
	if string(text) == "[REDACTED]" {
		s.value = ""
		return nil
	}
	s.value = string(text)
	return nil
}

// Expose returns the actual secret value for the x-api-key header.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty returns true if the secret value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
