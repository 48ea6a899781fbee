package domain

import "time"

// ConversationRecord is one durable row of the conversation log. Records are
// append-only: the store writes them once and only the retention purge ever
// removes them.
type ConversationRecord struct {
	ID                int64              `json:"id"`
	SessionID         string             `json:"session_id"`
	Title             string             `json:"conversation_title,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
	InputText         string             `json:"input_text"`
	Prediction        string             `json:"prediction"`
	ModelUsed         string             `json:"model_used"`
	ComplexityScore   int                `json:"complexity_score"`
	ComplexityLevel   string             `json:"complexity_level"`
	Probabilities     map[string]float64 `json:"probabilities"`
	ResponseTime      float64            `json:"response_time"`
	GeneratedResponse string             `json:"generated_response"`
}

// ResponseTimeStats summarizes response latency over a stats window. Values
// are nil when the window holds no timed conversations.
type ResponseTimeStats struct {
	Avg *float64 `json:"avg"`
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// GlobalStats is computed on demand from conversation rows over a trailing
// window; it is never stored.
type GlobalStats struct {
	PeriodDays           int               `json:"period_days"`
	TotalConversations   int64             `json:"total_conversations"`
	UniqueSessions       int64             `json:"unique_sessions"`
	ModelDistribution    map[string]int64  `json:"model_distribution"`
	CategoryDistribution map[string]int64  `json:"category_distribution"`
	ResponseTime         ResponseTimeStats `json:"response_time"`
	AvgComplexityScore   float64           `json:"avg_complexity_score"`
}
