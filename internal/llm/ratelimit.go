// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// LimitChat wraps c so every call first waits on limiter.
func LimitChat(c Chatter, limiter *rate.Limiter) Chatter {
	return &limitedChat{next: c, limiter: limiter}
}

// LimitFiles wraps f so every call first waits on limiter.
func LimitFiles(f FileStore, limiter *rate.Limiter) FileStore {
	return &limitedFiles{next: f, limiter: limiter}
}

type limitedChat struct {
	next    Chatter
	limiter *rate.Limiter
}

func (l *limitedChat) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Chat(ctx, req)
}

type limitedFiles struct {
	next    FileStore
	limiter *rate.Limiter
}

func (l *limitedFiles) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ListFiles(ctx)
}

func (l *limitedFiles) UploadFile(ctx context.Context, path string) (RemoteFile, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return RemoteFile{}, err
	}
	return l.next.UploadFile(ctx, path)
}

func (l *limitedFiles) FileContent(ctx context.Context, fileID string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.FileContent(ctx, fileID)
}
