package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveFolderMime = "application/vnd.google-apps.folder"

// DriveStorage maps slash separated keys onto a Google Drive folder tree
// rooted at a shared folder.
type DriveStorage struct {
	srv    *drive.Service
	rootID string

	mu      sync.Mutex
	folders map[string]string
}

func NewDriveStorage(ctx context.Context, credentialsJSON, rootFolderID string) (*DriveStorage, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("drive credentials must be provided")
	}
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	if rootFolderID == "" {
		rootFolderID = "root"
	}
	return &DriveStorage{srv: srv, rootID: rootFolderID, folders: map[string]string{"": rootFolderID}}, nil
}

// ListObjects lists the files in the folder holding prefix whose names start
// with the remainder of prefix. It does not recurse.
func (s *DriveStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	dir, namePrefix := splitPrefix(prefix)
	folderID, err := s.folderID(ctx, dir, false)
	if err != nil {
		return nil, err
	}

	results := make([]ObjectInfo, 0)
	call := s.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and mimeType!='%s' and trashed=false", folderID, driveFolderMime)).
		Fields("nextPageToken, files(id, name, size)")
	err = call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			if !strings.HasPrefix(f.Name, namePrefix) {
				continue
			}
			results = append(results, ObjectInfo{Key: JoinKey(dir, f.Name), Size: f.Size})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drive list failed: %w", err)
	}
	return results, nil
}

func (s *DriveStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	dir, name := path.Split(key)
	folderID, err := s.folderID(ctx, strings.TrimSuffix(dir, "/"), false)
	if err != nil {
		return nil, err
	}
	fileID, err := s.fileID(ctx, folderID, name)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}

	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download %s: %w", key, err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// UploadObject creates the file, or replaces its content when a file with the
// same name already exists in the target folder.
func (s *DriveStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	dir, name := path.Split(key)
	folderID, err := s.folderID(ctx, strings.TrimSuffix(dir, "/"), true)
	if err != nil {
		return err
	}
	fileID, err := s.fileID(ctx, folderID, name)
	if err != nil {
		return err
	}

	if fileID != "" {
		_, err = s.srv.Files.Update(fileID, &drive.File{}).Context(ctx).Media(bytes.NewReader(data)).Do()
	} else {
		_, err = s.srv.Files.Create(&drive.File{Name: name, Parents: []string{folderID}}).
			Context(ctx).
			Media(bytes.NewReader(data)).
			Do()
	}
	if err != nil {
		return fmt.Errorf("drive upload %s: %w", key, err)
	}
	return nil
}

func (s *DriveStorage) fileID(ctx context.Context, folderID, name string) (string, error) {
	result, err := s.srv.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", folderID, escapeDriveQuery(name))).
		Fields("files(id)").
		Do()
	if err != nil {
		return "", fmt.Errorf("drive lookup %s: %w", name, err)
	}
	if len(result.Files) == 0 {
		return "", nil
	}
	return result.Files[0].Id, nil
}

// folderID resolves dir below the root folder, creating missing folders when
// create is set.
func (s *DriveStorage) folderID(ctx context.Context, dir string, create bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.folders[dir]; ok {
		return id, nil
	}

	currentID := s.rootID
	walked := ""
	for _, folder := range strings.Split(dir, "/") {
		if folder == "" {
			continue
		}
		walked = JoinKey(walked, folder)
		if id, ok := s.folders[walked]; ok {
			currentID = id
			continue
		}

		result, err := s.srv.Files.List().
			Context(ctx).
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeDriveQuery(folder), driveFolderMime)).
			Fields("files(id, name)").
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}

		switch {
		case len(result.Files) > 0:
			currentID = result.Files[0].Id
		case create:
			created, err := s.srv.Files.Create(&drive.File{
				Name:     folder,
				MimeType: driveFolderMime,
				Parents:  []string{currentID},
			}).Context(ctx).Fields("id").Do()
			if err != nil {
				return "", fmt.Errorf("error creating folder %s: %w", folder, err)
			}
			currentID = created.Id
		default:
			return "", fmt.Errorf("folder %s: %w", walked, ErrObjectNotFound)
		}
		s.folders[walked] = currentID
	}

	return currentID, nil
}

func splitPrefix(prefix string) (dir, name string) {
	i := strings.LastIndex(prefix, "/")
	if i < 0 {
		return "", prefix
	}
	return prefix[:i], prefix[i+1:]
}

func escapeDriveQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

var _ ObjectStorage = (*DriveStorage)(nil)
