// Package httpclient provides basic http functions
package httpclient

import (
	"io"
	"net/http"
)

// GetBytes retrieves the body at url with a simple GET request
func GetBytes(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return io.ReadAll(resp.Body)
}
