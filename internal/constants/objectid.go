package constants

// inRange reports whether v falls within [lo, hi] inclusive.
func inRange(v, lo, hi uint32) bool {
	return v >= lo && v <= hi
}

// IsPlayerObjectID reports whether objectID falls in the player band
// (0x10000000-0x1FFFFFFF).
func IsPlayerObjectID(objectID uint32) bool {
	return inRange(objectID, ObjectIDPlayerStart, ObjectIDPlayerEnd)
}

// IsNpcObjectID reports whether objectID falls in the NPC band
// (0x20000000 and up).
func IsNpcObjectID(objectID uint32) bool {
	return objectID >= ObjectIDNpcStart
}

// IsItemObjectID reports whether objectID falls in the ground-item band
// (0x00000001-0x0FFFFFFF).
func IsItemObjectID(objectID uint32) bool {
	return inRange(objectID, ObjectIDItemStart, ObjectIDItemEnd)
}
