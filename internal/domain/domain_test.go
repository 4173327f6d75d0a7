package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	for _, s := range JobStatuses {
		got, err := ParseJobStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseJobStatus("on_hold")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.True(t, errors.Is(err, ErrInvalidStatus))

	_, err = ParseJobStatus("Pending")
	assert.Error(t, err, "status values are case-sensitive")
}

func TestJobStatus_Label(t *testing.T) {
	assert.Equal(t, "Traveling", JobStatusTraveling.Label())
	assert.Equal(t, "Cancelled", JobStatusCancelled.Label())
	assert.Equal(t, "bogus", JobStatus("bogus").Label())
}

func TestJob_ApplyStatus(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := &Job{Status: JobStatusWorking}

	job.ApplyStatus(JobStatusCompleted, t0)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, t0, *job.CompletedAt)

	// re-entering completed keeps the original stamp
	job.ApplyStatus(JobStatusCompleted, t0.Add(time.Hour))
	assert.Equal(t, t0, *job.CompletedAt)

	job.ApplyStatus(JobStatusWorking, t0.Add(2*time.Hour))
	assert.Nil(t, job.CompletedAt)
	assert.Equal(t, t0.Add(2*time.Hour), job.UpdatedAt)
}

func TestJobPatch_MergeKeepsStatusAndCompletedAt(t *testing.T) {
	done := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := &Job{Status: JobStatusCompleted, CompletedAt: &done, Title: "old"}

	title := "new title"
	price := 120.5
	patch := JobPatch{Title: &title, Price: &price, Attachments: []string{"a.jpg"}}
	require.False(t, patch.Empty())
	patch.Merge(job)

	assert.Equal(t, "new title", job.Title)
	assert.Equal(t, 120.5, *job.Price)
	assert.Equal(t, []string{"a.jpg"}, job.Attachments)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, done, *job.CompletedAt)

	assert.True(t, JobPatch{}.Empty())
}

func TestJobPatch_ClearOptionalFields(t *testing.T) {
	due := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	price := 80.0
	job := &Job{Title: "t", DueDate: &due, Price: &price}

	patch := JobPatch{ClearDueDate: true}
	require.False(t, patch.Empty())
	patch.Merge(job)
	assert.Nil(t, job.DueDate)
	require.NotNil(t, job.Price)

	JobPatch{ClearPrice: true}.Merge(job)
	assert.Nil(t, job.Price)
}

func TestJobFilter_Matches(t *testing.T) {
	assignee := int64(7)
	job := &Job{Status: JobStatusPending, AssigneeID: &assignee, RegionID: 3, CustomerID: 11}

	tests := []struct {
		name   string
		filter JobFilter
		want   bool
	}{
		{name: "empty filter", filter: JobFilter{}, want: true},
		{name: "status match", filter: JobFilter{Status: JobStatusPending}, want: true},
		{name: "status mismatch", filter: JobFilter{Status: JobStatusWorking}, want: false},
		{name: "assignee match", filter: JobFilter{AssigneeID: 7}, want: true},
		{name: "assignee mismatch", filter: JobFilter{AssigneeID: 8}, want: false},
		{name: "region and customer", filter: JobFilter{RegionID: 3, CustomerID: 11}, want: true},
		{name: "customer mismatch", filter: JobFilter{CustomerID: 12}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(job))
		})
	}
}

func TestGeoPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   GeoPoint
		wantErr bool
	}{
		{name: "inside range", point: GeoPoint{Latitude: 41.7, Longitude: 44.8}},
		{name: "on the bounds", point: GeoPoint{Latitude: -90, Longitude: 180}},
		{name: "latitude above range", point: GeoPoint{Latitude: 91}, wantErr: true},
		{name: "longitude below range", point: GeoPoint{Longitude: -181}, wantErr: true},
		{name: "NaN latitude", point: GeoPoint{Latitude: math.NaN(), Longitude: 10}, wantErr: true},
		{name: "NaN longitude", point: GeoPoint{Latitude: 10, Longitude: math.NaN()}, wantErr: true},
		{name: "infinite latitude", point: GeoPoint{Latitude: math.Inf(1)}, wantErr: true},
		{name: "infinite longitude", point: GeoPoint{Longitude: math.Inf(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidLocation))
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestPrincipal_Can(t *testing.T) {
	staff := &Principal{ID: 1, Role: RoleStaff}
	assert.True(t, staff.Can(CapUpdateJobStatus))
	assert.False(t, staff.Can(CapDeleteJobs))

	staff.Capabilities = NewCapabilitySet(CapDeleteJobs)
	assert.True(t, staff.Can(CapDeleteJobs))

	manager := &Principal{ID: 2, Role: RoleManager}
	assert.True(t, manager.Can(CapAssignJobs))
	assert.False(t, manager.Can(CapDeleteJobs))

	admin := &Principal{ID: 3, Role: RoleAdmin}
	assert.True(t, admin.Can(CapDeleteJobs))
}

func TestParseRoleAndCapability(t *testing.T) {
	r, err := ParseRole("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("owner")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	c, err := ParseCapability("jobs.assign")
	require.NoError(t, err)
	assert.Equal(t, CapAssignJobs, c)

	_, err = ParseCapability("jobs.everything")
	assert.Error(t, err)
}

func TestInternal(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("append transition", cause)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "append transition")
	assert.Nil(t, Internal("noop", nil))
}
