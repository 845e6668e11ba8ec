package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"podforge/internal/api"
)

func buildEpisodeRows(episodes []api.Episode) [][]string {
	if len(episodes) == 0 {
		return nil
	}
	sorted := make([]api.Episode, len(episodes))
	copy(sorted, episodes)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseDisplayTime(sorted[i].Created)
		tj := parseDisplayTime(sorted[j].Created)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, episode := range sorted {
		rows = append(rows, []string{
			episode.ID,
			episode.Name,
			episode.Owner,
			formatStatusLabel(episode.JobStatus),
			yesNo(episode.AudioFile != ""),
			formatDisplayTime(episode.Created),
		})
	}
	return rows
}

func buildJobStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseDisplayTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
