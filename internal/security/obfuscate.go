package security

// Obfuscate shifts each byte forward by (index%3)+1, wrapping at 256.
func Obfuscate(s string) string {
	return shift(s, 1)
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(s string) string {
	return shift(s, -1)
}

func shift(s string, dir int) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		delta := (i%3 + 1) * dir
		out[i] = byte((int(s[i]) + delta + 256) % 256)
	}
	return string(out)
}
