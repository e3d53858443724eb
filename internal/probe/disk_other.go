//go:build !linux && !darwin

package probe

import "errors"

func statfs(string) (Usage, error) {
	return Usage{}, errors.New("statfs not supported on this platform")
}
