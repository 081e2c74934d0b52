package blob

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory transport answering path-style PutObject.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    int
	status  int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, status: http.StatusOK}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &http.Response{StatusCode: f.status, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil)), Request: req}
	if req.Method != http.MethodPut {
		resp.StatusCode = http.StatusNotImplemented
		return resp, nil
	}
	f.puts++
	if f.status != http.StatusOK {
		resp.Body = io.NopCloser(strings.NewReader("<Error><Code>InternalError</Code><Message>boom</Message></Error>"))
		return resp, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
		body = decodeAWSChunked(body)
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	f.objects[key] = body
	f.types[key] = req.Header.Get("Content-Type")
	resp.Header.Set("ETag", `"etag"`)
	return resp, nil
}

// decodeAWSChunked strips aws-chunked framing: hex size lines, optional
// chunk extensions and trailing headers.
func decodeAWSChunked(b []byte) []byte {
	var out []byte
	r := bufio.NewReader(bytes.NewReader(b))
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return out
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		n, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || n == 0 {
			return out
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return out
		}
		out = append(out, chunk...)
		_, _ = r.ReadString('\n')
	}
}

func newTestS3Store(t *testing.T, fake *fakeS3, prefix string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "lidar",
		Prefix:          prefix,
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.RetryMaxAttempts = 1
	})
	require.NoError(t, err)
	return s
}

func TestS3Store_Put(t *testing.T) {
	fake := newFakeS3()
	s := newTestS3Store(t, fake, "runs/7")

	require.NoError(t, s.Put(context.Background(), "ground.las", []byte("LASF payload")))
	assert.Equal(t, 1, fake.puts, "exactly one request per object")
	assert.Equal(t, "LASF payload", string(fake.objects["lidar/runs/7/ground.las"]))
	assert.Equal(t, ContentType, fake.types["lidar/runs/7/ground.las"])
	assert.Equal(t, "s3://lidar/runs/7/ground.las", s.Location("ground.las"))
}

func TestS3Store_PutNoPrefix(t *testing.T) {
	fake := newFakeS3()
	s := newTestS3Store(t, fake, "")
	require.NoError(t, s.Put(context.Background(), "canopy.las", []byte("x")))
	assert.Contains(t, fake.objects, "lidar/canopy.las")
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.status = http.StatusInternalServerError
	s := newTestS3Store(t, fake, "")

	err := s.Put(context.Background(), "ground.las", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://lidar/ground.las")
	assert.Empty(t, fake.objects)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{})
	assert.Error(t, err)
}
