package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/internal/repo"
)

// Sequence renders counter values as human readable codes such as ORD00042.
type Sequence struct {
	Name   string
	Prefix string
	Pad    int
	latest func(r *repo.GormRepo, ctx context.Context) (string, error)
}

var (
	OrderSequence   = Sequence{Name: "orders", Prefix: "ORD", Pad: 5, latest: (*repo.GormRepo).LatestOrderCode}
	ProductSequence = Sequence{Name: "products", Prefix: "PROD", Pad: 3, latest: (*repo.GormRepo).LatestProductCode}
)

func (s Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Pad, n)
}

func (s Sequence) Parse(code string) (int64, error) {
	digits, ok := strings.CutPrefix(code, s.Prefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("code %q has no %s prefix", code, s.Prefix)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("code %q has a malformed number", code)
	}
	return n, nil
}

// Next allocates the following code. tx must be the transaction that stores
// the record receiving the code. The counter starts from the newest stored
// code the first time it is used.
func (s Sequence) Next(ctx context.Context, tx *repo.GormRepo) (string, error) {
	n, err := tx.NextCounterValue(ctx, s.Name, func(ctx context.Context) (int64, error) {
		code, err := s.latest(tx, ctx)
		if err != nil {
			return 0, err
		}
		if code == "" {
			return 0, nil
		}
		last, err := s.Parse(code)
		if err != nil {
			return 0, fmt.Errorf("%w: seed %s sequence: %v", ErrInternal, s.Name, err)
		}
		return last, nil
	})
	if err != nil {
		return "", internal(err)
	}
	return s.Format(n), nil
}
