package util

import (
	"crypto/sha256"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

func GetUUID() string {
	return uuid.New().String()
}

func RandomLowerAphaNumString(n int) string {
	rand.Seed(time.Now().UnixNano())

	var letter = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

	b := make([]rune, n)
	for i := range b {
		b[i] = letter[rand.Intn(len(letter))]
	}
	return string(b)
}

func HashKeyUsingSha256Checksum(data string) string {
	sum := sha256.Sum256([]byte(data))
	encryptData := fmt.Sprintf("%x", sum)
	return encryptData
}

// RoundFloat rounds to the given number of decimal places.
func RoundFloat(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

func StringValueIn(value string, list []string) bool {
	for i := range list {
		if list[i] == value {
			return true
		}
	}
	return false
}

func SortedStringKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Percentile returns the nearest-rank percentile of the given samples.
// The input slice is not modified. Returns 0 on empty input.
func Percentile(samples []float64, pct float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil((pct / 100) * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func MeanFloat64(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// DeepCopy copies all exported fields of from into to, so callers can
// mutate query objects without touching the original.
func DeepCopy(from, to interface{}) error {
	return copier.Copy(to, from)
}
