package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// classifyFetchErr maps transport failures onto the retryable
// navigation-timeout class; everything else passes through untouched.
func classifyFetchErr(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	return err
}

// classifyStatus maps platform block responses onto the security-challenge
// class. 999 is the platform's bot-block status.
func classifyStatus(code int) error {
	switch code {
	case 403, 429, 999:
		return fmt.Errorf("%w: http %d", ErrAuthChallenge, code)
	}
	if code >= 400 {
		return fmt.Errorf("http %d", code)
	}
	return nil
}
