package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ignatzorin/gallery-backend/internal/logger"
	"github.com/ignatzorin/gallery-backend/internal/models"
)

// ImageDocuments описывает документную часть хранилища записей.
type ImageDocuments interface {
	Create(ctx context.Context, img *models.StoredImage) error
	ListAll(ctx context.Context) ([]models.StoredImage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.StoredImage, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStorage описывает объектное хранилище байтов изображений.
type BlobStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// PersistenceGateway переводит записи галереи в документное и объектное
// хранилища и обратно. Перед любой операцией идемпотентно гарантирует
// существование анонимного принципала.
type PersistenceGateway struct {
	docs       ImageDocuments
	blobs      BlobStorage
	principals PrincipalRepository
}

// NewPersistenceGateway создаёт шлюз.
func NewPersistenceGateway(docs ImageDocuments, blobs BlobStorage, principals PrincipalRepository) *PersistenceGateway {
	return &PersistenceGateway{docs: docs, blobs: blobs, principals: principals}
}

// blobKey — ключ объекта для записи. Один объект на запись.
func blobKey(id uuid.UUID) string {
	return "images/" + id.String()
}

// Save загружает байты в объектное хранилище, получает постоянный URL и
// сохраняет документ с этим URL вместо байтов. Компенсации частичных сбоев
// нет: если документ не записался, загруженный объект остаётся сиротой.
func (g *PersistenceGateway) Save(ctx context.Context, img *models.StoredImage, body io.Reader) error {
	if body == nil {
		return fmt.Errorf("persistence: запись без байтов не сохраняется")
	}

	if err := g.principals.EnsureAnonymous(ctx, img.OwnerID); err != nil {
		return err
	}

	url, err := g.blobs.Put(ctx, blobKey(img.ID), body, img.Size, img.Type)
	if err != nil {
		return err
	}
	img.URL = &url

	if err := g.docs.Create(ctx, img); err != nil {
		// Известный пробел: объект уже загружен, но документа нет.
		logger.WithComponent("persistence").Warnf("документ не записан, объект %s осиротел: %v", blobKey(img.ID), err)
		return err
	}

	return nil
}

// FetchAll возвращает все записи, новые первыми. Байты всегда отсутствуют —
// заполнен только URL.
func (g *PersistenceGateway) FetchAll(ctx context.Context, owner uuid.UUID) ([]models.StoredImage, error) {
	if err := g.principals.EnsureAnonymous(ctx, owner); err != nil {
		return nil, err
	}
	return g.docs.ListAll(ctx)
}

// Fetch возвращает одну запись.
func (g *PersistenceGateway) Fetch(ctx context.Context, owner, id uuid.UUID) (*models.StoredImage, error) {
	if err := g.principals.EnsureAnonymous(ctx, owner); err != nil {
		return nil, err
	}
	return g.docs.GetByID(ctx, id)
}

// Delete удаляет документ, затем по возможности объект. Сбой удаления
// объекта глотается: документа уже нет, запись считается удалённой.
func (g *PersistenceGateway) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := g.principals.EnsureAnonymous(ctx, owner); err != nil {
		return err
	}

	if err := g.docs.Delete(ctx, id); err != nil {
		return err
	}

	if err := g.blobs.Delete(ctx, blobKey(id)); err != nil {
		logger.WithComponent("persistence").Warnf("объект %s не удалён: %v", blobKey(id), err)
	}

	return nil
}
