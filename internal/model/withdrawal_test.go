package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(WithdrawalStatusProcessing, WithdrawalStatusCompleted))
	assert.True(t, CanTransitionTo(WithdrawalStatusProcessing, WithdrawalStatusFailed))
	assert.True(t, CanTransitionTo(WithdrawalStatusFailed, WithdrawalStatusRefunded))

	// 终态不再流转，也不允许跳步
	assert.False(t, CanTransitionTo(WithdrawalStatusCompleted, WithdrawalStatusFailed))
	assert.False(t, CanTransitionTo(WithdrawalStatusRefunded, WithdrawalStatusProcessing))
	assert.False(t, CanTransitionTo(WithdrawalStatusProcessing, WithdrawalStatusRefunded))
}

func TestCapDate(t *testing.T) {
	// 日期键按 UTC 取日，跨时区的同一时刻落在同一个键上
	utc := time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-15", CapDate(utc))

	shanghai := time.FixedZone("CST", 8*3600)
	assert.Equal(t, "2024-06-15", CapDate(time.Date(2024, 6, 16, 7, 30, 0, 0, shanghai)))
}
