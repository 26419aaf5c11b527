// Package sectoragg implements C3: weighted sector dip aggregation and
// breadth ratios (spec.md §4.4).
package sectoragg

import (
	"time"

	"github.com/ternarybob/dipsentry/internal/models"
)

// Aggregate computes a SectorSnapshot from the sector's member data at the
// current cycle. Weights are renormalized to sum to 1; members with a
// non-positive or missing weight share the remainder equally. An empty
// members slice produces a zeroed snapshot with ConstituentsCount=0.
func Aggregate(sectorID, sectorName string, members []models.MemberData, now time.Time) models.SectorSnapshot {
	snap := models.SectorSnapshot{
		SectorID:   sectorID,
		SectorName: sectorName,
		Timestamp:  now,
	}
	if len(members) == 0 {
		return snap
	}
	snap.ConstituentsCount = len(members)

	weights := normalizeWeights(members)

	weightedDip := 0.0
	for i, m := range members {
		weightedDip += m.DipPct * weights[i]
	}
	snap.DipPct = weightedDip

	validRSI, rsiUnder40 := 0, 0
	validPairs, smaUp := 0, 0
	lowerValidPairs, lowerTouch := 0, 0
	volumeRatioSum, volumeRatioCount := 0.0, 0

	for _, m := range members {
		if m.RSI != nil {
			validRSI++
			if *m.RSI < 40 {
				rsiUnder40++
			}
		}
		if m.SMA200 != nil {
			validPairs++
			if m.Price >= *m.SMA200 {
				smaUp++
			}
		}
		if m.BollingerLower != nil {
			lowerValidPairs++
			if m.Price <= 1.02*(*m.BollingerLower) {
				lowerTouch++
			}
		}
		if m.VolumeAvg > 0 {
			volumeRatioSum += m.CurrentVolume / m.VolumeAvg
			volumeRatioCount++
		}
	}

	if validRSI > 0 {
		snap.RSI40Breadth = float64(rsiUnder40) / float64(validRSI)
	}
	if validPairs > 0 {
		snap.SMA200UpBreadth = float64(smaUp) / float64(validPairs)
	}
	if lowerValidPairs > 0 {
		snap.LowerBandBreadth = float64(lowerTouch) / float64(lowerValidPairs)
	}
	if volumeRatioCount > 0 {
		snap.AvgVolumeRatio = volumeRatioSum / float64(volumeRatioCount)
	} else {
		snap.AvgVolumeRatio = 1.0
	}

	return snap
}

// normalizeWeights renormalizes member weights to sum to 1. Members with a
// non-positive weight are treated as unweighted and split the remainder
// (or, if no member supplied a positive weight, all members are equal).
func normalizeWeights(members []models.MemberData) []float64 {
	out := make([]float64, len(members))
	sumPositive := 0.0
	unweightedCount := 0
	for _, m := range members {
		if m.Weight > 0 {
			sumPositive += m.Weight
		} else {
			unweightedCount++
		}
	}

	if sumPositive == 0 {
		equal := 1.0 / float64(len(members))
		for i := range out {
			out[i] = equal
		}
		return out
	}

	remainder := 1.0 - sumPositive
	if remainder < 0 {
		remainder = 0
	}
	var unweightedShare float64
	if unweightedCount > 0 {
		unweightedShare = remainder / float64(unweightedCount)
	}

	total := 0.0
	for i, m := range members {
		if m.Weight > 0 {
			out[i] = m.Weight
		} else {
			out[i] = unweightedShare
		}
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}
