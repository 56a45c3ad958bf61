package variant

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/gloamlab/gloam/internal/common/config"
	"github.com/gloamlab/gloam/internal/engine/session"
)

// algorithmTag versions the assignment function. Changing the algorithm
// must change the tag so existing deployments keep their distribution.
const algorithmTag = "variant-weighted-v1"

var (
	// ErrNoEligibleVariant is returned when no variant accepts the
	// session's participant count.
	ErrNoEligibleVariant = errors.New("no eligible variant for session")
)

// Assigner deterministically assigns a rule variant to each new session.
// The same session id and variant configuration always yield the same
// variant, on any node, with no coordination.
type Assigner struct {
	variants []config.VariantConfig
}

// NewAssigner creates an assigner over the given variant list.
func NewAssigner(variants []config.VariantConfig) (*Assigner, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("at least one variant must be configured")
	}
	if err := config.ValidateVariants(variants); err != nil {
		return nil, err
	}
	vs := make([]config.VariantConfig, len(variants))
	copy(vs, variants)
	return &Assigner{variants: vs}, nil
}

// Assign picks the variant for a session among those eligible for its
// participant count and returns an immutable snapshot of it.
func (a *Assigner) Assign(sessionID string, participantCount int) (session.VariantSnapshot, error) {
	eligible := a.eligible(participantCount)
	if len(eligible) == 0 {
		return session.VariantSnapshot{}, ErrNoEligibleVariant
	}

	// Bucket walk order is sorted by id so the pick does not depend on
	// configuration file order.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	var total uint64
	for _, v := range eligible {
		total += uint64(v.Weight)
	}

	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(sessionID))
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(algorithmTag))
	bucket := hasher.Sum64() % total

	var picked config.VariantConfig
	for _, v := range eligible {
		w := uint64(v.Weight)
		if bucket < w {
			picked = v
			break
		}
		bucket -= w
	}

	params, err := picked.ParamsJSON()
	if err != nil {
		return session.VariantSnapshot{}, fmt.Errorf("failed to snapshot variant %q params: %w", picked.ID, err)
	}
	return session.VariantSnapshot{ID: picked.ID, Params: params}, nil
}

// Variants returns a copy of the configured variant list.
func (a *Assigner) Variants() []config.VariantConfig {
	out := make([]config.VariantConfig, len(a.variants))
	copy(out, a.variants)
	return out
}

func (a *Assigner) eligible(participantCount int) []config.VariantConfig {
	out := make([]config.VariantConfig, 0, len(a.variants))
	for _, v := range a.variants {
		if participantCount < v.MinParticipants {
			continue
		}
		if v.MaxParticipants > 0 && participantCount > v.MaxParticipants {
			continue
		}
		out = append(out, v)
	}
	return out
}
