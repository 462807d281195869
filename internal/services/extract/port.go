package extract

import "strings"

// PlainPort strips the `E` encoding prefix devices put in front of add/drop port numbers.
func PlainPort(port string) string {
	return strings.TrimPrefix(port, "E")
}
