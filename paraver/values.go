package paraver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	// TaskEvents is the event type every traced method enter and exit is recorded under
	TaskEvents uint64 = 8000010
	// UnregisteredValue is used for methods missing from the values table
	UnregisteredValue uint64 = 999
	// FirstValue is where generated values tables start numbering
	FirstValue uint64 = 10000
	// EndValue marks leaving a traced method
	EndValue uint64 = 0
)

// Values maps method descriptors (module.Class.method) to event values
type Values map[string]uint64

// LoadValuesFile reads a values table from a properties file
func LoadValuesFile(path string) (Values, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening values file: %w", err)
	}

	defer fd.Close()

	values, err := LoadValues(fd)
	if err != nil {
		return nil, fmt.Errorf("error loading values from %q: %w", path, err)
	}

	return values, nil
}

// LoadValues reads descriptor=value lines. Lines without "=" and comments are skipped.
func LoadValues(r io.Reader) (Values, error) {
	values := Values{}

	s := bufio.NewScanner(r)
	n := 0
	for s.Scan() {
		n++

		line := strings.TrimRight(s.Text(), " \t\r")
		if !strings.Contains(line, "=") {
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)

		value, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing value for %q on line %d: %v", parts[0], n, err)
		}

		values[parts[0]] = value
	}

	return values, s.Err()
}

// ReadDescriptors reads one method descriptor per line, skipping blank lines and # comments
func ReadDescriptors(r io.Reader) ([]string, error) {
	descriptors := []string{}

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		descriptors = append(descriptors, line)
	}

	return descriptors, s.Err()
}

// WriteValues numbers descriptors consecutively from start and writes them as a values table
func WriteValues(w io.Writer, descriptors []string, start uint64) error {
	bw := bufio.NewWriter(w)

	for i, descriptor := range descriptors {
		if _, err := fmt.Fprintf(bw, "%s=%d\n", descriptor, start+uint64(i)); err != nil {
			return err
		}
	}

	return bw.Flush()
}
