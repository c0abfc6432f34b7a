/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package autodj

import (
	"strings"
	"time"

	"github.com/friendsincode/aircore/internal/models"
)

// applySeparation drops any candidate played within the slot's
// configured separation windows, per spec.md §4.4 step 5.
func applySeparation(candidates []models.CatalogItem, rules models.SeparationRules, recent []models.RecentPlay, now time.Time) []models.CatalogItem {
	if rules.ArtistSeparation == 0 && rules.AlbumSeparation == 0 && rules.TrackSeparation == 0 {
		return candidates
	}

	out := make([]models.CatalogItem, 0, len(candidates))
	for _, cand := range candidates {
		if violatesSeparation(cand, rules, recent, now) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func violatesSeparation(item models.CatalogItem, rules models.SeparationRules, recent []models.RecentPlay, now time.Time) bool {
	for _, play := range recent {
		age := now.Sub(play.PlayedAt)
		if rules.TrackSeparation > 0 && play.ItemID == item.ID && age < rules.TrackSeparation {
			return true
		}
		if rules.ArtistSeparation > 0 && strings.EqualFold(play.Artist, item.Artist) && age < rules.ArtistSeparation {
			return true
		}
		if rules.AlbumSeparation > 0 && strings.EqualFold(play.Album, item.Album) && age < rules.AlbumSeparation {
			return true
		}
	}
	return false
}

// applyLegacyRotation enforces the optional global N-song/N-minute
// separation and max-plays-per-hour caps of spec.md §4.4 step 6.
func applyLegacyRotation(candidates []models.CatalogItem, rules models.LegacyRotationRules, recent []models.RecentPlay, now time.Time) []models.CatalogItem {
	if !rules.Enabled {
		return candidates
	}

	hourCount := map[string]int{}
	if rules.MaxPlaysPerHour > 0 {
		cutoff := now.Add(-time.Hour)
		for _, play := range recent {
			if play.PlayedAt.After(cutoff) {
				hourCount[play.ItemID]++
			}
		}
	}

	out := make([]models.CatalogItem, 0, len(candidates))
	for _, cand := range candidates {
		if rules.MaxPlaysPerHour > 0 && hourCount[cand.ID] >= rules.MaxPlaysPerHour {
			continue
		}
		if violatesLegacyCount(cand, recent, rules) {
			continue
		}
		if violatesLegacyMinutes(cand, recent, rules, now) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func violatesLegacyCount(item models.CatalogItem, recent []models.RecentPlay, rules models.LegacyRotationRules) bool {
	if rules.SongSeparationCount <= 0 && rules.ArtistSeparationCount <= 0 && rules.AlbumSeparationCount <= 0 {
		return false
	}
	for i, play := range recent {
		if rules.SongSeparationCount > 0 && i < rules.SongSeparationCount && play.ItemID == item.ID {
			return true
		}
		if rules.ArtistSeparationCount > 0 && i < rules.ArtistSeparationCount && strings.EqualFold(play.Artist, item.Artist) {
			return true
		}
		if rules.AlbumSeparationCount > 0 && i < rules.AlbumSeparationCount && strings.EqualFold(play.Album, item.Album) {
			return true
		}
	}
	return false
}

func violatesLegacyMinutes(item models.CatalogItem, recent []models.RecentPlay, rules models.LegacyRotationRules, now time.Time) bool {
	for _, play := range recent {
		age := now.Sub(play.PlayedAt)
		if rules.SongSeparationMinutes > 0 && play.ItemID == item.ID && age < rules.SongSeparationMinutes {
			return true
		}
		if rules.ArtistSeparationMinutes > 0 && strings.EqualFold(play.Artist, item.Artist) && age < rules.ArtistSeparationMinutes {
			return true
		}
		if rules.AlbumSeparationMinutes > 0 && strings.EqualFold(play.Album, item.Album) && age < rules.AlbumSeparationMinutes {
			return true
		}
	}
	return false
}
