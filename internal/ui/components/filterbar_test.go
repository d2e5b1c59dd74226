// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unialerta/uce-tui/internal/model"
)

func TestFilterBarDefaultsToAll(t *testing.T) {
	fb := NewFilterBar()
	assert.Equal(t, model.FilterAll, fb.Active())
}

func TestFilterBarCycleWrapsAround(t *testing.T) {
	fb := NewFilterBar()
	count := len(model.AllFilters())
	for i := 0; i < count; i++ {
		fb.Cycle()
	}
	assert.Equal(t, model.FilterAll, fb.Active())
}

func TestFilterBarSetIgnoresUnknown(t *testing.T) {
	fb := NewFilterBar()
	fb.Set(model.FilterPendingPrivate)
	assert.Equal(t, model.FilterPendingPrivate, fb.Active())

	fb.Set(model.ReportFilter("resolved-public"))
	assert.Equal(t, model.FilterPendingPrivate, fb.Active())
}

func TestFilterBarViewShowsAllChips(t *testing.T) {
	fb := NewFilterBar()
	view := fb.View()
	for _, f := range model.AllFilters() {
		assert.Contains(t, view, f.DisplayName())
	}
}
