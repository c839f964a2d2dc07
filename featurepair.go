package physics

// FeaturePair identifies which vertex/edge features of two colliding boxes
// produced a contact point. It is the sole cross-frame contact identity
// channel: two contacts in successive manifolds are "the same contact" iff
// their FeaturePair.Key() values match (§4.2, §9).
//
// The four octets are packed in a fixed, explicit byte order regardless of
// host endianness — the source's C++ union-over-an-i32 trick is
// platform-dependent, which §9 calls out as a correctness trap ("build the
// key the same way in every step"); packing by shifts sidesteps that
// entirely.
type FeaturePair struct {
	InR, OutR, InI, OutI uint8
}

// Key returns the 32-bit identity of this feature pair.
func (fp FeaturePair) Key() int32 {
	return int32(fp.InR) | int32(fp.OutR)<<8 | int32(fp.InI)<<16 | int32(fp.OutI)<<24
}

// edgeFeaturePair builds the key for an edge-edge contact: the reference
// octets identify one edge, the incident octets the other.
func edgeFeaturePair(edgeA, edgeB uint8) FeaturePair {
	return FeaturePair{InR: edgeA, OutR: edgeA, InI: edgeB, OutI: edgeB}
}
