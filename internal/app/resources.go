package app

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
)

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// resourceStack remembers what New has opened so a failed start can release it.
type resourceStack struct {
	log     logger.Logger
	closers []closer
}

func (s *resourceStack) push(name string, closeFn func(ctx context.Context) error) {
	s.closers = append(s.closers, closer{name: name, close: closeFn})
}

// closeAll closes in reverse order of opening. Errors are logged and do not stop the rest.
func (s *resourceStack) closeAll(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(ctx); err != nil {
			s.log.Errorf("Error closing %s: %v", c.name, err)
			continue
		}
		s.log.Infof("%s closed", c.name)
	}
	s.closers = nil
}
