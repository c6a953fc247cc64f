package main

import (
	"math"
	"sort"
)

// Compatibility scoring weights and bounds. Hand-tuned values carried over
// from the original product; check with product owners before changing.
const (
	locationWeight  = 0.3
	ageWeight       = 0.2
	genderWeight    = 0.3
	interestsWeight = 0.2

	maxAgeDifference = 20  // years; cap for age closeness scoring
	maxDistanceKm    = 100 // km; cap for proximity scoring
)

// Haversine formula for distance in km
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371 // Earth radius in km
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1 = lat1 * (math.Pi / 180)
	lat2 = lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// matchPercentage computes the compatibility score between user and
// candidate as an integer in [0,100]. A candidate on the user's rejection
// list always scores 0; everything else degrades to neutral 0.5 sub-scores
// when data is missing. Inputs are never mutated.
func matchPercentage(user, candidate UserRecord) int {
	if containsID(user.RejectedUserIDs, candidate.ID) {
		return 0
	}

	weighted := locationScore(user, candidate)*locationWeight +
		ageScore(user, candidate)*ageWeight +
		genderScore(user, candidate)*genderWeight +
		interestsScore(user, candidate)*interestsWeight

	// Truncate, not round: 0.6323 -> 63
	return int(weighted * 100)
}

// locationScore prefers real coordinates; falls back to country/city
// comparison when either side has none.
func locationScore(user, candidate UserRecord) float64 {
	if user.Latitude != nil && user.Longitude != nil &&
		candidate.Latitude != nil && candidate.Longitude != nil {
		distance := haversine(*user.Latitude, *user.Longitude, *candidate.Latitude, *candidate.Longitude)
		return 1.0 - math.Min(distance, maxDistanceKm)/maxDistanceKm
	}

	if user.Country == "" || candidate.Country == "" {
		return 0.5
	}
	if user.Country != candidate.Country {
		return 0.1
	}
	if user.City != "" && candidate.City != "" {
		if user.City == candidate.City {
			return 1.0
		}
		return 0.4
	}
	// Same country but city unknown on at least one side
	return 0.6
}

// ageScore checks the candidate against the user's preferred range
// (defaulting to userAge±5) and scores closeness within it.
func ageScore(user, candidate UserRecord) float64 {
	if user.Age == nil || candidate.Age == nil {
		return 0.5
	}
	userAge := *user.Age
	candidateAge := *candidate.Age

	minAge := userAge - 5
	if user.Preferences.MinAge != nil {
		minAge = *user.Preferences.MinAge
	}
	maxAge := userAge + 5
	if user.Preferences.MaxAge != nil {
		maxAge = *user.Preferences.MaxAge
	}

	if candidateAge < minAge || candidateAge > maxAge {
		return 0.1
	}

	ageDifference := math.Abs(float64(userAge - candidateAge))
	return 1.0 - math.Min(ageDifference, maxAgeDifference)/maxAgeDifference
}

// genderScore is 1.0 on a preference hit (or the literal "Any"), 0.0 on a
// miss, and neutral 0.5 when the user has no stored preference.
func genderScore(user, candidate UserRecord) float64 {
	if user.Preferences.GenderPreference == nil {
		return 0.5
	}
	pref := *user.Preferences.GenderPreference
	if pref == "Any" || pref == candidate.Gender {
		return 1.0
	}
	return 0.0
}

// interestsScore is the Jaccard similarity of the two interest sets,
// neutral 0.5 when either set is empty.
func interestsScore(user, candidate UserRecord) float64 {
	if len(user.Interests) == 0 || len(candidate.Interests) == 0 {
		return 0.5
	}

	union := make(map[string]struct{}, len(user.Interests)+len(candidate.Interests))
	userSet := make(map[string]struct{}, len(user.Interests))
	for _, interest := range user.Interests {
		userSet[interest] = struct{}{}
		union[interest] = struct{}{}
	}

	shared := 0
	counted := make(map[string]struct{}, len(candidate.Interests))
	for _, interest := range candidate.Interests {
		union[interest] = struct{}{}
		if _, dup := counted[interest]; dup {
			continue
		}
		counted[interest] = struct{}{}
		if _, ok := userSet[interest]; ok {
			shared++
		}
	}

	if len(union) == 0 {
		return 0.0
	}
	return float64(shared) / float64(len(union))
}

// findMatches scores every candidate against the user, drops the user
// themselves and anyone below minPercentage, and returns the rest in
// descending score order. Ties keep the input order (stable sort).
func findMatches(user UserRecord, candidates []UserRecord, minPercentage int) []MatchResult {
	results := make([]MatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == user.ID {
			continue
		}
		percentage := matchPercentage(user, candidate)
		if percentage < minPercentage {
			continue
		}
		results = append(results, MatchResult{User: candidate, Percentage: percentage})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Percentage > results[j].Percentage
	})
	return results
}
