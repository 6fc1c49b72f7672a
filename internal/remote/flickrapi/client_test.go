package flickrapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"setkeeper/internal/remote"
)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{APIKey: "k", APISecret: "s"}, zap.NewNop())
	assert.Error(t, err, "oauth tokens required")

	_, err = New(Config{OAuthToken: "t", OAuthTokenSecret: "ts"}, zap.NewNop())
	assert.Error(t, err, "api key required")

	c, err := New(Config{APIKey: "k", APISecret: "s", OAuthToken: "t", OAuthTokenSecret: "ts"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "me", c.userID)
}

func TestAPIErrorClassification(t *testing.T) {
	cases := []struct {
		code int
		msg  string
		want remote.Class
	}{
		{105, "Service currently unavailable", remote.ClassTransient},
		{106, "Write operation failed", remote.ClassTransient},
		{3, "Photo already in set", remote.ClassBenign},
		{1, "Photoset not found", remote.ClassPermanent},
		{100, "Invalid API Key", remote.ClassPermanent},
	}
	for _, tc := range cases {
		err := apiError("op", tc.code, tc.msg)
		assert.Equal(t, tc.want, err.Class, "code %d %q", tc.code, tc.msg)
	}

	assert.ErrorIs(t, apiError("collection.add", 3, "Photo already in set"), remote.ErrAlreadyMember)
}

func TestParseSearchPhoto(t *testing.T) {
	p := searchPhoto{
		ID:         "53001",
		Owner:      "12345@N00",
		Title:      "common raven",
		Tags:       "ioc151:seq=204 corvuscorax holiday",
		DateTaken:  "2024-05-01 07:31:12",
		DateUpload: "1714806672",
	}
	p.Description.Text = "first light"

	it := parseSearchPhoto(p)

	assert.Equal(t, "53001", it.ID)
	assert.Equal(t, "first light", it.Description)
	assert.Equal(t, time.Date(2024, 5, 1, 7, 31, 12, 0, time.UTC), it.Taken)
	assert.Equal(t, int64(1714806672), it.Uploaded.Unix())

	require.Len(t, it.Tags, 3)
	assert.True(t, it.Tags[0].Machine)
	assert.False(t, it.Tags[1].Machine)
}
