package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

func TestFormResponseRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFormResponseRepository(db)

	submittedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO form_responses").
		WithArgs("form-1", []byte(`{"logo":"https://cdn.example.com/a.png"}`), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submitted_at"}).AddRow("resp-1", submittedAt))

	resp := &models.FormResponse{
		FormConfigID: "form-1",
		Responses:    models.Answers{"logo": models.URLAnswer("https://cdn.example.com/a.png")},
	}
	require.NoError(t, repo.Append(context.Background(), resp))
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, submittedAt, resp.SubmittedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormResponseRepositoryListByForm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFormResponseRepository(db)

	now := time.Now()
	mock.ExpectQuery("FROM form_responses WHERE form_config_id = \\$1 ORDER BY submitted_at DESC").
		WithArgs("form-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "form_config_id", "responses", "submitted_by", "submitted_at", "user_agent"}).
			AddRow("r2", "form-1", []byte(`{"age":31}`), nil, now, "curl/8").
			AddRow("r1", "form-1", []byte(`{"age":30}`), "user-9", now.Add(-time.Hour), nil))

	responses, err := repo.ListByForm(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "r2", responses[0].ID)
	assert.Equal(t, 31.0, responses[0].Responses["age"].Number)
	require.NotNil(t, responses[1].SubmittedBy)
	assert.Equal(t, "user-9", *responses[1].SubmittedBy)
}
