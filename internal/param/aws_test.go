package param

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	params map[string]string
	pages  [][]string
	err    error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected decryption")
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func (f *fakeSSM) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if in.NextToken != nil {
		page = len(aws.ToString(in.NextToken))
	}
	out := &ssm.GetParametersByPathOutput{}
	for _, v := range f.pages[page] {
		out.Parameters = append(out.Parameters, types.Parameter{Value: aws.String(v)})
	}
	if page+1 < len(f.pages) {
		// token length encodes the next page index
		token := make([]byte, page+1)
		for i := range token {
			token[i] = 'x'
		}
		out.NextToken = aws.String(string(token))
	}
	return out, nil
}

func TestParameterStoreFetcher_Fetch(t *testing.T) {
	f := NewParameterStoreFetcherWithClient(&fakeSSM{params: map[string]string{"/imagine/token": "hf_abc"}})

	v, err := f.Fetch(context.Background(), "/imagine/token")
	require.NoError(t, err)
	assert.Equal(t, "hf_abc", v)

	_, err = f.Fetch(context.Background(), "/imagine/missing")
	var notFound *types.ParameterNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestParameterStoreFetcher_FetchAllPages(t *testing.T) {
	f := NewParameterStoreFetcherWithClient(&fakeSSM{pages: [][]string{{"a fox", "an owl"}, {"a whale"}}})

	v, err := f.FetchAll(context.Background(), "/imagine/prompts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a fox", "an owl", "a whale"}, v)
}

func TestParameterStoreFetcher_Errors(t *testing.T) {
	boom := errors.New("throttled")
	f := NewParameterStoreFetcherWithClient(&fakeSSM{err: boom})

	_, err := f.Fetch(context.Background(), "/x")
	assert.ErrorIs(t, err, boom)
	_, err = f.FetchAll(context.Background(), "/x")
	assert.ErrorIs(t, err, boom)
}
