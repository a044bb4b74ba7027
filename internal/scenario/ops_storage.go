package scenario

import (
	"context"
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/firebase-wasm/pkg/firebase/storage"
)

func objectRef(ctx context.Context, env *Env, path string) (*storage.Reference, error) {
	st, err := env.Storage(ctx)
	if err != nil {
		return nil, err
	}
	return st.Ref(ctx, path)
}

type uploadArgs struct {
	Path string `yaml:"path"`
	// Content is uploaded as UTF-8 text. ContentBase64 takes binary data.
	Content       string            `yaml:"content"`
	ContentBase64 string            `yaml:"content_base64"`
	ContentType   string            `yaml:"content_type"`
	CacheControl  string            `yaml:"cache_control"`
	Custom        map[string]string `yaml:"custom"`
}

func (a *uploadArgs) metadata() (*storage.Metadata, error) {
	if a.ContentType == "" && a.CacheControl == "" && len(a.Custom) == 0 {
		return nil, nil
	}
	b := storage.NewMetadataBuilder()
	if a.ContentType != "" {
		b = b.ContentType(a.ContentType)
	}
	if a.CacheControl != "" {
		b = b.CacheControl(a.CacheControl)
	}
	for k, v := range a.Custom {
		b = b.Custom(k, v)
	}
	md, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &md, nil
}

type objectResult struct {
	FullPath    string            `yaml:"full_path"`
	Size        int64             `yaml:"size"`
	ContentType string            `yaml:"content_type,omitempty"`
	MD5Hash     string            `yaml:"md5_hash,omitempty"`
	Custom      map[string]string `yaml:"custom,omitempty"`
}

func storageUpload(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	const op = "storage.upload"
	var args uploadArgs
	if err := decodeArgs(op, node, &args); err != nil {
		return nil, err
	}
	if err := required(op, "path", args.Path); err != nil {
		return nil, err
	}
	if args.Content != "" && args.ContentBase64 != "" {
		return nil, &ArgsError{Op: op, Field: "content", Err: errors.New("content and content_base64 are exclusive")}
	}

	data := []byte(args.Content)
	if args.ContentBase64 != "" {
		var err error
		if data, err = base64.StdEncoding.DecodeString(args.ContentBase64); err != nil {
			return nil, &ArgsError{Op: op, Field: "content_base64", Err: err}
		}
	}

	md, err := args.metadata()
	if err != nil {
		return nil, err
	}
	ref, err := objectRef(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	res, err := ref.UploadBytes(ctx, data, md)
	if err != nil {
		return nil, err
	}
	return &objectResult{
		FullPath:    res.Metadata.FullPath,
		Size:        res.Metadata.Size,
		ContentType: res.Metadata.ContentType,
		MD5Hash:     res.Metadata.MD5Hash,
		Custom:      res.Metadata.CustomMetadata,
	}, nil
}

type downloadArgs struct {
	Path    string `yaml:"path"`
	MaxSize int64  `yaml:"max_size"`
}

type downloadResult struct {
	Size          int    `yaml:"size"`
	Content       string `yaml:"content,omitempty"`
	ContentBase64 string `yaml:"content_base64,omitempty"`
}

func storageDownload(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args downloadArgs
	if err := decodeArgs("storage.download", node, &args); err != nil {
		return nil, err
	}
	if err := required("storage.download", "path", args.Path); err != nil {
		return nil, err
	}
	ref, err := objectRef(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	data, err := ref.Bytes(ctx, args.MaxSize)
	if err != nil {
		return nil, err
	}
	res := &downloadResult{Size: len(data)}
	if utf8.Valid(data) {
		res.Content = string(data)
	} else {
		res.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	}
	return res, nil
}

func storageURL(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args pathArgs
	if err := args.decode("storage.url", node); err != nil {
		return nil, err
	}
	ref, err := objectRef(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	url, err := ref.DownloadURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": url}, nil
}

func storageDelete(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args pathArgs
	if err := args.decode("storage.delete", node); err != nil {
		return nil, err
	}
	ref, err := objectRef(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	return nil, ref.Delete(ctx)
}

type listArgs struct {
	Path       string `yaml:"path"`
	All        bool   `yaml:"all"`
	MaxResults int    `yaml:"max_results"`
	PageToken  string `yaml:"page_token"`
}

type listResult struct {
	Items         []string `yaml:"items"`
	Prefixes      []string `yaml:"prefixes"`
	NextPageToken string   `yaml:"next_page_token,omitempty"`
}

func storageList(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args listArgs
	if err := decodeArgs("storage.list", node, &args); err != nil {
		return nil, err
	}
	ref, err := objectRef(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}

	var lr *storage.ListResult
	if args.All {
		lr, err = ref.ListAll(ctx)
	} else {
		var opts storage.ListOptions
		opts, err = storage.NewListOptionsBuilder().
			MaxResults(args.MaxResults).
			PageToken(args.PageToken).
			Build()
		if err != nil {
			return nil, err
		}
		lr, err = ref.List(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	res := &listResult{
		Items:         make([]string, 0, len(lr.Items)),
		Prefixes:      make([]string, 0, len(lr.Prefixes)),
		NextPageToken: lr.NextPageToken,
	}
	for _, item := range lr.Items {
		res.Items = append(res.Items, item.FullPath)
	}
	for _, p := range lr.Prefixes {
		res.Prefixes = append(res.Prefixes, p.FullPath)
	}
	return res, nil
}
