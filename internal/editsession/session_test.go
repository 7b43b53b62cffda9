package editsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"github.com/KatTate/katalyst-franchise-planner/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	doc   plan.FinancialInputs
	saves []plan.FinancialInputs
	err   error
}

func (h *harness) inputs() plan.FinancialInputs { return h.doc }

func (h *harness) save(_ context.Context, in plan.FinancialInputs) error {
	h.saves = append(h.saves, in)
	if h.err != nil {
		return h.err
	}
	h.doc = in
	return nil
}

func newHarness(opts ...Option) (*harness, *Session) {
	h := &harness{doc: testutil.NewBrandInputs()}
	opts = append([]Option{WithNow(func() time.Time { return fixedNow })}, opts...)
	return h, New(h.inputs, h.save, opts...)
}

var auvRef = plan.Ref(plan.CategoryRevenue, "monthlyAuv")

func (h *harness) field(t *testing.T, ref plan.FieldRef) plan.FinancialFieldValue {
	t.Helper()
	f, ok := h.doc.Field(ref)
	require.True(t, ok, "field %s", ref)
	return f
}

func TestStartEdit_SeedsBuffer(t *testing.T) {
	tests := []struct {
		name     string
		ref      plan.FieldRef
		expected string
	}{
		{"Currency in dollars", auvRef, "45000"},
		{"Percentage times 100", plan.Ref(plan.CategoryFinancing, "interestRate"), "8.5"},
		{"Integer raw", plan.Ref(plan.CategoryFinancing, "loanTermMonths"), "120"},
		{"List element", plan.ListRef(plan.CategoryOperatingCosts, plan.FacilitiesDecomposition, 1), "450"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s := newHarness()
			require.NoError(t, s.StartEdit(tt.ref, h.field(t, tt.ref)))
			assert.Equal(t, Editing, s.State())
			assert.Equal(t, tt.expected, s.Buffer())
		})
	}
}

func TestStartEdit_UnknownField(t *testing.T) {
	_, s := newHarness()
	err := s.StartEdit(plan.Ref(plan.CategoryRevenue, "bogus"), plan.NewDefaultField(1))
	assert.ErrorIs(t, err, plan.ErrUnknownField)
	assert.Equal(t, Idle, s.State())
}

func TestStartEdit_RefusesWhileSaving(t *testing.T) {
	saving := true
	h, s := newHarness(WithSavingCheck(func() bool { return saving }))

	err := s.StartEdit(auvRef, h.field(t, auvRef))
	assert.ErrorIs(t, err, ErrSaveInFlight)
	assert.Equal(t, Idle, s.State())

	saving = false
	assert.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
}

func TestCommitEdit_SavesChangedValue(t *testing.T) {
	h, s := newHarness()
	require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
	s.SetBuffer("$52,000")

	saved, err := s.CommitEdit(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, Idle, s.State())

	require.Len(t, h.saves, 1)
	f := h.field(t, auvRef)
	assert.Equal(t, 5200000.0, f.CurrentValue)
	assert.Equal(t, 4500000.0, f.DefaultValue)
	assert.Equal(t, plan.SourceUserOverride, f.Source)
	require.NotNil(t, f.LastModifiedAt)
	assert.Equal(t, fixedNow, *f.LastModifiedAt)

	other, _ := h.doc.Field(plan.Ref(plan.CategoryRevenue, "year1GrowthRate"))
	assert.False(t, other.IsCustom(), "the full document is sent with one field changed")
}

func TestCommitEdit_UnparsableTextIsDroppedQuietly(t *testing.T) {
	for _, text := range []string{"", "abc", "-5", "(15)"} {
		h, s := newHarness()
		require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
		s.SetBuffer(text)

		saved, err := s.CommitEdit(context.Background())
		assert.NoError(t, err, "text=%q", text)
		assert.False(t, saved, "text=%q", text)
		assert.Equal(t, Idle, s.State())
		assert.Empty(t, h.saves)
	}
}

func TestCommitEdit_UnchangedValueIssuesNoSave(t *testing.T) {
	h, s := newHarness()
	require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
	s.SetBuffer("45,000.00")

	saved, err := s.CommitEdit(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, h.saves)
}

func TestCommitEdit_SaveErrorIsReturned(t *testing.T) {
	h, s := newHarness()
	h.err = errors.New("server said no")
	require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
	s.SetBuffer("60000")

	saved, err := s.CommitEdit(context.Background())
	assert.True(t, saved)
	assert.ErrorIs(t, err, h.err)
	assert.Equal(t, Idle, s.State())
}

func TestCancelEdit_WinsOverLateCommit(t *testing.T) {
	h, s := newHarness()
	require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
	s.SetBuffer("99999")

	s.CancelEdit()
	assert.Equal(t, Idle, s.State(), "a cancel without a following blur still ends the edit")
	assert.Empty(t, s.Buffer())

	saved, err := s.CommitEdit(context.Background())
	require.NoError(t, err)
	assert.False(t, saved, "commit-on-blur after cancel is suppressed")
	assert.Empty(t, h.saves)
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)))
	s.SetBuffer("50000")
	saved, err = s.CommitEdit(context.Background())
	require.NoError(t, err)
	assert.True(t, saved, "the suppression only covers one commit")
}

func TestCommitEdit_TypedDefaultStillOverrides(t *testing.T) {
	h, s := newHarness()
	ref := plan.Ref(plan.CategoryFinancing, "interestRate")

	_, err := s.DirectUpdateField(context.Background(), ref, 0.09)
	require.NoError(t, err)

	require.NoError(t, s.StartEdit(ref, h.field(t, ref)))
	s.SetBuffer("8.5")
	saved, err := s.CommitEdit(context.Background())
	require.NoError(t, err)
	require.True(t, saved)

	f := h.field(t, ref)
	assert.Equal(t, f.DefaultValue, f.CurrentValue)
	assert.Equal(t, plan.SourceUserOverride, f.Source)
}

func TestResetField(t *testing.T) {
	h, s := newHarness()

	saved, err := s.ResetField(context.Background(), auvRef)
	require.NoError(t, err)
	assert.False(t, saved, "an untouched default needs no save")

	_, err = s.DirectUpdateField(context.Background(), auvRef, 100)
	require.NoError(t, err)
	saved, err = s.ResetField(context.Background(), auvRef)
	require.NoError(t, err)
	assert.True(t, saved)

	f := h.field(t, auvRef)
	assert.Equal(t, f.DefaultValue, f.CurrentValue)
	assert.Equal(t, plan.SourceBrandDefault, f.Source)
}

func TestResetField_CustomAtDefaultValue(t *testing.T) {
	h, s := newHarness()
	f := h.field(t, auvRef)
	_, err := s.DirectUpdateField(context.Background(), auvRef, f.DefaultValue+1)
	require.NoError(t, err)
	_, err = s.DirectUpdateField(context.Background(), auvRef, f.DefaultValue)
	require.NoError(t, err)
	require.True(t, h.field(t, auvRef).IsCustom())

	saved, err := s.ResetField(context.Background(), auvRef)
	require.NoError(t, err)
	assert.True(t, saved, "provenance differs even though the value matches")
	assert.False(t, h.field(t, auvRef).IsCustom())
}

func TestDirectUpdateField(t *testing.T) {
	h, s := newHarness()
	ref := plan.ListRef(plan.CategoryOperatingCosts, plan.FacilitiesDecomposition, 0)

	saved, err := s.DirectUpdateField(context.Background(), ref, 120000)
	require.NoError(t, err)
	assert.False(t, saved, "same value is not saved")

	saved, err = s.DirectUpdateField(context.Background(), ref, 150000)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 150000.0, h.field(t, ref).CurrentValue)

	_, err = s.DirectUpdateField(context.Background(), plan.ListRef(plan.CategoryOperatingCosts, plan.FacilitiesDecomposition, 9), 1)
	assert.ErrorIs(t, err, plan.ErrUnknownField)
}

func TestInFlightSaveBlocksStartEdit(t *testing.T) {
	var s *Session
	var startErr error
	h := &harness{doc: testutil.NewBrandInputs()}
	s = New(h.inputs, func(ctx context.Context, in plan.FinancialInputs) error {
		startErr = s.StartEdit(auvRef, plan.NewDefaultField(1))
		return h.save(ctx, in)
	})

	_, err := s.DirectUpdateField(context.Background(), auvRef, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, startErr, ErrSaveInFlight)
	assert.NoError(t, s.StartEdit(auvRef, h.field(t, auvRef)), "the flag clears after the save")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "committing", Committing.String())
	assert.Equal(t, "State(9)", State(9).String())
}
