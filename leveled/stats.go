package leveled

import "github.com/fxamacker/cbor/v2"

// Stats is the summary sidecar written next to an encoded circuit. It is
// serialized as CBOR so other tooling can read it without knowing the gate
// stream layout.
type Stats struct {
	PrimaryInputs uint64 `cbor:"primary_inputs"`
	XorGates      uint64 `cbor:"xor_gates"`
	AndGates      uint64 `cbor:"and_gates"`
	Outputs       uint64 `cbor:"outputs"`
	Levels        uint32 `cbor:"levels"`
	ScratchSize   uint64 `cbor:"scratch_size"`
	EncodedBytes  uint64 `cbor:"encoded_bytes,omitempty"`
}

func (s *Stats) TotalGates() uint64 {
	return s.XorGates + s.AndGates
}

// CollectStats tallies the address-resolved levels.
func CollectStats(primaryInputs uint64, levels []*AddrLevel, scratch uint64) Stats {
	s := Stats{
		PrimaryInputs: primaryInputs,
		Levels:        uint32(len(levels)),
		ScratchSize:   scratch,
	}
	for _, l := range levels {
		s.XorGates += uint64(len(l.XorGates))
		s.AndGates += uint64(len(l.AndGates))
	}
	return s
}

// statsWire is Stats without the BinaryMarshaler/BinaryUnmarshaler methods;
// marshaling through it keeps cbor from calling back into them forever.
type statsWire Stats

func (s *Stats) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*statsWire)(s))
}

func (s *Stats) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*statsWire)(s))
}
