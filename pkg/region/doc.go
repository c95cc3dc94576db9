// Package region models one tier of the political map as a forest of
// regions.
//
// # Overview
//
// A tier (county, duchy, kingdom, empire or nation) is loaded from a
// [Dataset]: a JSON object keyed by region id. Each region names its
// subjects (the authoritative forward edges) and optionally its overlord.
// [New] normalises the dataset into a [Graph] in which every region has at
// most one overlord, derived from the subject lists:
//
//	ds, err := region.ParseDataset(data)
//	if err != nil {
//	    return err
//	}
//	g := region.New(region.TierCounty, ds)
//	for id := range g.Ancestors("c_ashford") {
//	    fmt.Println(id)
//	}
//
// # Inconsistent data
//
// Loading never fails because of a broken hierarchy. Dangling references,
// regions claimed by two overlords, overlord declarations that disagree
// with subject lists, cycles and duplicate colours are recorded as [Issue]
// values and reported by [Graph.Issues]. At runtime they only ever shorten
// an ancestor walk: [Graph.Ancestors] stops at the first missing id and at
// the first revisit, so every walk terminates.
//
// # Colours
//
// Every region is painted on the tier's base map in a unique RGB colour.
// [ColorIndex] maps an exact sampled colour back to the region id. There is
// no nearest-colour fallback: anti-aliased borders and the background
// resolve to nothing.
package region
