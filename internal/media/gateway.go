// Package media stores post cover images in the configured object store and
// translates between object keys and the public references kept on posts.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/storage"
)

// FallbackImage is shown for posts without a cover.
const FallbackImage = "/images/default.png"

// ErrForeignReference is returned for absolute URLs that are not served from
// this gateway's public base URL. Such objects cannot be deleted here.
var ErrForeignReference = errors.New("media reference is not hosted by this gateway")

var allowedTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpg"},
	{"image/png", ".png"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
}

// Upload is an image received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

type Gateway struct {
	store         *storage.Storage
	baseURL       string
	folder        string
	maxBytes      int64
	uploadTimeout time.Duration
}

func NewGateway(backend storage.ObjectStorage, cfg config.MediaConfig) *Gateway {
	return &Gateway{
		store:         storage.NewStorage(backend),
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
		folder:        strings.Trim(cfg.Folder, "/"),
		maxBytes:      cfg.MaxBytes,
		uploadTimeout: cfg.UploadTimeout,
	}
}

// Upload validates and stores an image, returning its public reference.
func (g *Gateway) Upload(ctx context.Context, up Upload) (string, error) {
	size := int64(len(up.Data))
	if size == 0 {
		return "", errs.New(errs.UploadRejected, "image file is empty")
	}
	if g.maxBytes > 0 && size > g.maxBytes {
		return "", errs.New(errs.UploadRejected,
			fmt.Sprintf("image exceeds the %s limit", humanize.IBytes(uint64(g.maxBytes))))
	}

	detected := mimetype.Detect(up.Data)
	contentType, ext, ok := imageType(detected)
	if !ok {
		return "", errs.New(errs.UploadRejected, "only jpeg, png, gif and webp images are allowed")
	}

	if g.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.uploadTimeout)
		defer cancel()
	}

	key := path.Join(g.folder, uuid.NewString()+ext)
	obj := storage.Object{Key: key, Data: up.Data, ContentType: contentType}
	if err := g.store.Save(ctx, obj); err != nil {
		return "", errs.Wrap(errs.UploadRejected, "image upload failed",
			errs.Wrap(errs.DependencyUnavailable, "object store unavailable", err))
	}
	return g.referenceFor(key), nil
}

// Delete removes the object behind ref. An empty reference is a no-op and a
// missing object counts as deleted.
func (g *Gateway) Delete(ctx context.Context, ref string) error {
	key, err := g.KeyFromReference(ref)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	if err := g.store.Remove(ctx, key); err != nil {
		return errs.Wrap(errs.DependencyUnavailable, "object store unavailable", err)
	}
	return nil
}

// KeyFromReference returns the object key for a public URL under the base URL
// or for a bare key. It returns "" for an empty reference.
func (g *Gateway) KeyFromReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}

	var key string
	switch {
	case g.baseURL != "" && strings.HasPrefix(ref, g.baseURL+"/"):
		key = strings.TrimPrefix(ref, g.baseURL+"/")
	case isAbsoluteURL(ref):
		return "", ErrForeignReference
	default:
		key = strings.TrimLeft(ref, "/")
	}

	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", fmt.Errorf("invalid media key %q", key)
		}
	}
	return key, nil
}

// DisplayURL returns ref, or FallbackImage when the post has no cover.
func DisplayURL(ref string) string {
	if strings.TrimSpace(ref) == "" {
		return FallbackImage
	}
	return ref
}

func (g *Gateway) referenceFor(key string) string {
	if g.baseURL == "" {
		return key
	}
	return g.baseURL + "/" + key
}

func imageType(detected *mimetype.MIME) (string, string, bool) {
	for _, t := range allowedTypes {
		if detected.Is(t.mime) {
			return t.mime, t.ext, true
		}
	}
	return "", "", false
}

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && u.Scheme != "" && u.Host != ""
}
