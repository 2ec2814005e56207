package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"readrepeat/internal/queue"
)

type queueView struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	CreatedAt    string `json:"createdAt"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type queueDetail struct {
	queueView
	Payload json.RawMessage `json:"payload,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

func buildQueueViews(items []*queue.Job) []queueView {
	views := make([]queueView, 0, len(items))
	for _, item := range items {
		views = append(views, newQueueView(item))
	}
	return views
}

func newQueueView(item *queue.Job) queueView {
	return queueView{
		ID:           item.ID,
		Kind:         item.Kind,
		Status:       string(item.Status),
		Attempts:     item.Attempts,
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
		ErrorMessage: item.ErrorMessage,
	}
}

func newQueueDetail(item *queue.Job) queueDetail {
	detail := queueDetail{queueView: newQueueView(item)}
	if json.Valid([]byte(item.PayloadJSON)) {
		detail.Payload = json.RawMessage(item.PayloadJSON)
	}
	if item.ResultJSON != "" && json.Valid([]byte(item.ResultJSON)) {
		detail.Result = json.RawMessage(item.ResultJSON)
	}
	return detail
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count > 0 {
			keys = append(keys, string(key))
		}
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[queue.Status(key)])})
	}
	return rows
}

func buildQueueListRows(items []*queue.Job) [][]string {
	sorted := make([]*queue.Job, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.Kind,
			formatStatusLabel(string(item.Status)),
			fmt.Sprintf("%d", item.Attempts),
			item.CreatedAt.UTC().Format("2006-01-02 15:04"),
			truncate(item.ErrorMessage, 40),
		})
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
