/* utils.go
 * Utility functions used across the application
 */

package main

import (
	"fmt"
	"strings"
)

// convertStrToBool converts a string of true or false into a boolean for comparisons
// Preconditions: Receives string containing either true or false (case insensitive)
// Postconditions: Returns boolean value or an error if the string is not true or false
func convertStrToBool(str string) (bool, error) {
	str = strings.TrimSpace(str)
	str = strings.ToLower(str)

	if str == "true" {
		return true, nil
	} else if str == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string")
}

// splitList splits a comma separated env value into trimmed, non-empty entries
// Preconditions: Receives a string like "123, 456,789"
// Postconditions: Returns the entries with whitespace stripped, empty ones dropped
func splitList(str string) []string {
	var out []string
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
