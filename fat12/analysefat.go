package fat12

import "math"

// SectorReader reads one logical sector's raw bytes, bridging the disk
// layer's CylHead-addressed tracks into the logical-sector addressing
// fat12 reasons about (spec §4.5 "logical sector addressing").
type SectorReader func(logicalSector int) []byte

// AnalyseFatSectors estimates the FAT length in sectors (fat_sectors_per_copy)
// by cross-correlating candidate-distance pairs of logical sectors starting
// at the FAT's first reserved sector res, per spec §4.5. It returns the
// winning distance and whether it lies in the common {3,5} range (the
// caller is expected to warn if not).
func AnalyseFatSectors(read SectorReader, res, maxFatSectors int) (dist int, common bool) {
	bestScore := -1.0
	bestDist := 0

	for d := 1; d <= maxFatSectors; d++ {
		score, participants := correlateAtDistance(read, res, d)
		if participants == 0 {
			continue
		}
		weighted := (score / float64(participants)) * math.Sqrt(float64(d))
		if weighted > bestScore {
			bestScore = weighted
			bestDist = d
		}
	}

	return bestDist, bestDist == 3 || bestDist == 5
}

// correlateAtDistance computes Σ match_i across the sector pairs
// [res, res+d) vs [res+d, res+2d), per the documented per-sector formula:
//
//	equal_i  = count of positions where both bytes are equal
//	diff_i   = Σ|fat1[j] − round(prefix_avg(fat1[0..j]))|
//	match_i  = equal_i · diff_i / (128 · |common|²)
func correlateAtDistance(read SectorReader, res, d int) (total float64, participants int) {
	for i := 0; i < d; i++ {
		a := read(res + i)
		b := read(res + d + i)
		if a == nil || b == nil {
			continue
		}
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		if n == 0 {
			continue
		}

		equal := 0
		runningSum := 0
		diff := 0.0
		for j := 0; j < n; j++ {
			if a[j] == b[j] {
				equal++
			}
			runningSum += int(a[j])
			avg := float64(runningSum) / float64(j+1)
			diff += math.Abs(float64(a[j]) - round(avg))
		}

		match := float64(equal) * diff / (128 * float64(n) * float64(n))
		total += match
		participants++
	}
	return
}

func round(v float64) float64 {
	return math.Floor(v + 0.5)
}
