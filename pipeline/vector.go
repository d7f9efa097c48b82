package pipeline

import "math"

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	// Can't normalize zero vector
	if magnitude == 0 {
		return result
	}

	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
