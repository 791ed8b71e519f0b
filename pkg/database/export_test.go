package data

import (
	"github.com/spf13/afero"
	"github.com/tauraamui/pocketcam/pkg/database/dbconn"
)

func OverloadUC(overload func() (string, error)) func() {
	ucRef := uc
	uc = overload
	return func() { uc = ucRef }
}

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}

func OverloadConn(overload func(string) (dbconn.GormWrapper, error)) func() {
	connRef := openDBConnection
	openDBConnection = overload
	return func() { openDBConnection = connRef }
}
