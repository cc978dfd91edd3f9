package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetPerFileCeiling(t *testing.T) {
	b := NewBudget(100, 1000)

	assert.Equal(t, Admit, b.Admit(99))
	assert.Equal(t, Admit, b.Admit(100), "file of exactly the ceiling is admitted")
	assert.Equal(t, RejectFile, b.Admit(101), "one byte over is rejected")
}

func TestBudgetCumulativeCeiling(t *testing.T) {
	b := NewBudget(100, 150)

	assert.Equal(t, Admit, b.Admit(100))
	b.Commit(100)

	assert.Equal(t, Admit, b.Admit(50), "exactly filling the budget is allowed")
	assert.Equal(t, RejectBudgetExhausted, b.Admit(51))
	assert.Equal(t, int64(100), b.Used())
}

func TestBudgetPerFileCheckedBeforeCumulative(t *testing.T) {
	b := NewBudget(10, 5)
	// 20 violates both ceilings; the per-file check wins.
	assert.Equal(t, RejectFile, b.Admit(20))
	assert.Equal(t, RejectBudgetExhausted, b.Admit(10))
}

func TestBudgetRejectionLeavesTotalsUntouched(t *testing.T) {
	b := NewBudget(10, 100)
	b.Admit(50)
	b.Admit(5)
	assert.Equal(t, int64(0), b.Used())
}
