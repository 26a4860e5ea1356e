package circuit

import "fmt"

// DeriveCredits computes, for every wire, how many times it will be read
// before it can be reclaimed. The result is indexed by wire id. Constants and
// primary inputs get the Permanent sentinel; declared gate outputs are forced
// to zero, which pins them for the lifetime of the evaluation.
//
// The pass is a pure function of the gate stream and the output set, so it
// can be re-run downstream to validate externally supplied credits.
func DeriveCredits(c *Circuit) ([]Credits, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	first := c.FirstGateWire()
	credits := make([]Credits, c.NumWires())
	for i := WireID(0); i < first; i++ {
		credits[i] = Permanent
	}
	for i, g := range c.Gates {
		for _, in := range [2]WireID{g.In1, g.In2} {
			if credits[in] == Permanent {
				// constants and primary inputs are never reclaimed
				continue
			}
			if credits[in] == Permanent-1 {
				return nil, fmt.Errorf("%w: wire %d consumer count overflowed at gate %d",
					ErrInvalidCircuit, in, i)
			}
			credits[in]++
		}
	}
	for _, o := range c.Outputs {
		if o >= first {
			credits[o] = 0
		}
	}
	return credits, nil
}

// ValidateCredits re-derives the credit mapping and compares it against an
// externally supplied one.
func ValidateCredits(c *Circuit, credits []Credits) error {
	want, err := DeriveCredits(c)
	if err != nil {
		return err
	}
	if len(credits) != len(want) {
		return fmt.Errorf("%w: credit table covers %d wires, circuit has %d",
			ErrInvalidCircuit, len(credits), len(want))
	}
	for i, w := range want {
		if credits[i] != w {
			return fmt.Errorf("%w: wire %d declares %d credits, derived %d",
				ErrInvalidCircuit, i, credits[i], w)
		}
	}
	return nil
}
