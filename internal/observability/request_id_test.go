package observability

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Run("lambda request id", func(t *testing.T) {
		ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "aws-req-1"})
		ctx = context.WithValue(ctx, middleware.RequestIDKey, "chi-req-1")
		assert.Equal(t, "aws-req-1", RequestID(ctx))
	})

	t.Run("chi request id", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "chi-req-1")
		assert.Equal(t, "chi-req-1", RequestID(ctx))
	})

	t.Run("generated", func(t *testing.T) {
		id := RequestID(context.Background())
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})
}
