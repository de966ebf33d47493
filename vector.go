package bfieldmap

// Sample is the storage type of a field component: int16 for compact
// zone maps, float64 for computed fields.
type Sample interface {
	~int16 | ~float64
}

// Vector3 is a field vector in cylindrical components (z, r, phi).
type Vector3[T Sample] struct {
	Z, R, Phi T
}

// At returns component i (0=z, 1=r, 2=phi).
func (v Vector3[T]) At(i int) T {
	switch i {
	case 0:
		return v.Z
	case 1:
		return v.R
	default:
		return v.Phi
	}
}

// Float converts v to float64 components.
func (v Vector3[T]) Float() Vector3[float64] {
	return Vector3[float64]{Z: float64(v.Z), R: float64(v.R), Phi: float64(v.Phi)}
}
