package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// expandHome expands a leading "~" in path to the user's home directory.
func expandHome(path string) string {
	expanded := os.ExpandEnv(path)
	if expanded == path && len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		expanded = home + path[1:]
	}
	return expanded
}

// getJSON issues a GET request against the running daemon's admin server
// and decodes the response body into out.
func getJSON(url string, out any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("contacting admin server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
