// Package gdrive locates documents a sender asked for and returns them
// ready to attach to the reply.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/service"
)

// Google-native formats are exported to their Office equivalents.
var exportableMime = map[string]struct {
	mimeType  string
	extension string
}{
	"application/vnd.google-apps.document": {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx",
	},
	"application/vnd.google-apps.spreadsheet": {
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx",
	},
	"application/vnd.google-apps.presentation": {
		"application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx",
	},
}

type driveClient struct {
	oauthCfg *oauth2.Config
	logger   zerolog.Logger
}

func NewDriveClient(clientID, clientSecret string, log zerolog.Logger) service.DriveClient {
	return &driveClient{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{drive.DriveReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		logger: log.With().Str("component", "gdrive").Logger(),
	}
}

// SearchAttachment finds the best-matching Drive file for the query and
// downloads it. A name match is preferred over a full-text match.
// Returns (nil, nil) when nothing matches; not finding a document is
// not a failure.
func (d *driveClient) SearchAttachment(ctx context.Context, user *model.User, query string) (*model.Attachment, error) {
	token := &oauth2.Token{
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(d.oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, apperr.Service("gdrive", "create service", err)
	}

	safe := sanitizeQuery(query)
	var files []*drive.File
	for _, q := range []string{
		fmt.Sprintf("name contains '%s' and trashed=false", safe),
		fmt.Sprintf("fullText contains '%s' and trashed=false", safe),
	} {
		result, err := svc.Files.List().
			Q(q).
			Spaces("drive").
			Fields("files(id, name, mimeType, modifiedTime)").
			OrderBy("modifiedTime desc").
			PageSize(3).
			Context(ctx).Do()
		if err != nil {
			return nil, apperr.Service("gdrive", "search files", err)
		}
		if len(result.Files) > 0 {
			files = result.Files
			break
		}
	}

	if len(files) == 0 {
		d.logger.Debug().Str("query", query).Msg("no drive files found")
		return nil, nil
	}

	return d.download(ctx, svc, files[0])
}

func (d *driveClient) download(ctx context.Context, svc *drive.Service, file *drive.File) (*model.Attachment, error) {
	filename := file.Name
	mimeType := file.MimeType
	var resp io.ReadCloser

	if export, ok := exportableMime[file.MimeType]; ok {
		r, err := svc.Files.Export(file.Id, export.mimeType).Context(ctx).Download()
		if err != nil {
			return nil, apperr.Service("gdrive", "export file", err)
		}
		resp = r.Body
		filename += export.extension
		mimeType = export.mimeType
	} else {
		r, err := svc.Files.Get(file.Id).Context(ctx).Download()
		if err != nil {
			return nil, apperr.Service("gdrive", "download file", err)
		}
		resp = r.Body
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, apperr.Service("gdrive", "read file", err)
	}

	return &model.Attachment{
		Filename: filename,
		MimeType: mimeType,
		Data:     data,
	}, nil
}

// sanitizeQuery escapes single quotes for the Drive query language.
func sanitizeQuery(query string) string {
	return strings.ReplaceAll(query, "'", `\'`)
}
