package dropbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arbiter-go/storage/errs"
)

func TestEveryOperationIsUnsupported(t *testing.T) {
	assert := assert.New(t)
	d := New("")
	ctx := context.Background()

	_, err := d.Get(ctx, "x")
	assert.Equal(errs.UnsupportedOperation, errs.KindOf(err))

	err = d.Put(ctx, "x", nil)
	assert.Equal(errs.UnsupportedOperation, errs.KindOf(err))

	_, err = d.Size(ctx, "x")
	assert.Equal(errs.UnsupportedOperation, errs.KindOf(err))

	err = d.Copy(ctx, "x", "y")
	assert.Equal(errs.UnsupportedOperation, errs.KindOf(err))

	_, err = d.Glob(ctx, "x/*", false)
	assert.Equal(errs.UnsupportedOperation, errs.KindOf(err))
}

func TestProfiledProtocol(t *testing.T) {
	assert.Equal(t, "dbx", New("").ProfiledProtocol())
}
