package paramstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI serves parameters from a map and records requested names.
type fakeAPI struct {
	params    map[string]string
	err       error
	requested []string
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.requested = append(f.requested, *in.Name)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[*in.Name]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestGetParameter(t *testing.T) {
	client, err := New(&fakeAPI{params: map[string]string{"/bfa/LLM_API_KEY": "sk-test"}})
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), "/bfa/LLM_API_KEY")
	require.NoError(t, err)
	require.Equal(t, "sk-test", v)

	_, err = client.GetParameter(context.Background(), "/bfa/NOPE")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{err: errors.New("boom")})
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestExportEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://already.set")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	api := &fakeAPI{params: map[string]string{
		"/bfa/prod/LLM_API_KEY":  "sk-from-ssm",
		"/bfa/prod/SUPABASE_URL": "https://from.ssm",
	}}
	client, err := New(api)
	require.NoError(t, err)

	err = client.ExportEnv(context.Background(), "/bfa/prod/", []string{"LLM_API_KEY", "SUPABASE_URL", "DATABASE_URL"}, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "sk-from-ssm", os.Getenv("LLM_API_KEY"))
	require.Equal(t, "https://already.set", os.Getenv("SUPABASE_URL"), "existing env wins")
	require.Empty(t, os.Getenv("DATABASE_URL"))
	require.Equal(t, []string{"/bfa/prod/LLM_API_KEY", "/bfa/prod/DATABASE_URL"}, api.requested)
}
