//go:build !darwin && !(linux && (amd64 || arm64))

package vlc

var defaultPaths []string

func openLibrary([]string) (*library, error) {
	return nil, ErrUnavailable
}
