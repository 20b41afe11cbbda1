package delta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// signer produces the venue's HMAC-SHA256 request signature:
// hex(HMAC-SHA256(secret, METHOD + timestamp + path + query + body)).
type signer struct {
	key    string
	secret []byte
	// now is injectable for tests.
	now func() time.Time
}

func newSigner(creds Credentials) *signer {
	return &signer{
		key:    creds.Key,
		secret: []byte(creds.Secret),
		now:    time.Now,
	}
}

// sign computes the signature for the given request components at timestamp ts.
func (s *signer) sign(method, path, query string, body []byte, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(method))
	mac.Write([]byte(ts))
	mac.Write([]byte(path))
	if query != "" {
		mac.Write([]byte("?" + query))
	}
	if len(body) > 0 {
		mac.Write(body)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// authorize stamps the authentication headers onto req.
func (s *signer) authorize(req *http.Request, body []byte) {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	sig := s.sign(req.Method, req.URL.Path, req.URL.RawQuery, body, ts)

	req.Header.Set("api-key", s.key)
	req.Header.Set("timestamp", ts)
	req.Header.Set("signature", sig)
}
