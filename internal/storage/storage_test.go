package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/playzone-reservation/internal/config"
)

func TestMemoryStore_PutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("https://cdn.example.test/")

	u, err := s.Put(ctx, "tts/pickup/en/abc.mp3", []byte("one"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/tts/pickup/en/abc.mp3", u)

	_, err = s.Put(ctx, "tts/pickup/en/abc.mp3", []byte("two"), "audio/mpeg")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	ok, err := s.Exists(ctx, "tts/pickup/en/abc.mp3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Puts())
}

func TestS3Store_URL(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "public base url",
			cfg:  config.StorageConfig{Bucket: "audio", Region: "eu-west-1", Prefix: "tts", PublicBaseURL: "https://cdn.example.test"},
			want: "https://cdn.example.test/tts/pickup/a%20b.mp3",
		},
		{
			name: "custom endpoint",
			cfg:  config.StorageConfig{Bucket: "audio", Region: "eu-west-1", Endpoint: "http://minio:9000/"},
			want: "http://minio:9000/audio/pickup/a%20b.mp3",
		},
		{
			name: "aws virtual host",
			cfg:  config.StorageConfig{Bucket: "audio", Region: "me-central-1", Prefix: "tts"},
			want: "https://audio.s3.me-central-1.amazonaws.com/tts/pickup/a%20b.mp3",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &S3Store{cfg: tc.cfg}
			got, err := s.URL(ctx, "pickup/a b.mp3")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
