// Package presenter renders PSI results for the console and for result
// files. The protocol core has no dependency on it.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WriteTable writes the intersection as a two-column table, bit-string
// next to its integer value, in the receiver's dataset order. An empty
// intersection prints a single note instead.
func WriteTable(w io.Writer, intersection []string) error {
	if len(intersection) == 0 {
		_, err := fmt.Fprintln(w, "The intersection between sender and receiver is empty")
		return err
	}

	width := len(intersection[0])
	rule := strings.Repeat("-", width+2) + "+" + strings.Repeat("-", width+2)

	if _, err := fmt.Fprintf(w, "Intersection between the two datasets (bit-string, integer value):\n%s\n", rule); err != nil {
		return err
	}
	for _, bits := range intersection {
		v, err := strconv.ParseUint(bits, 2, 64)
		if err != nil {
			return fmt.Errorf("present %q: %w", bits, err)
		}
		if _, err := fmt.Fprintf(w, " %s | %d\n%s\n", bits, v, rule); err != nil {
			return err
		}
	}
	return nil
}

// WriteNoiseBudget reports the remaining correctness margin of the
// sender's reply, with a warning when it is exhausted.
func WriteNoiseBudget(w io.Writer, budget int) error {
	if budget > 0 {
		_, err := fmt.Fprintf(w, "Noise budget remaining: %d bits\n", budget)
		return err
	}
	_, err := fmt.Fprintf(w, "Noise budget exhausted: the result above is not reliable\n")
	return err
}

// WriteResultFile writes the intersection to a file, one bit-string per
// line.
func WriteResultFile(path string, intersection []string) error {
	var sb strings.Builder
	for _, bits := range intersection {
		sb.WriteString(bits)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}
