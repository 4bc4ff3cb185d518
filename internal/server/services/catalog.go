package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "webshop/server/internal/server/config"
	"webshop/server/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// GoodView is a catalog good prepared for the read surface: tags flattened
// to names and the picture resolved to a temporary URL.
type GoodView struct {
	ID          int64
	Name        string
	PriceCents  int64
	Description string
	Tags        []string
	PictureURL  string
}

// CatalogService serves the goods read surface and brokers presigned
// object-storage URLs for good pictures. Clients upload and download
// pictures directly against object storage; the server only signs URLs.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *CatalogService {
	return &CatalogService{db: db, repomanager: m, config: cfg}
}

// RandomStorageKey produces a date-bucketed object key for a new picture.
func RandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("goods/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *CatalogService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// PictureGetURL returns a presigned GET URL for the stored picture object.
func (s *CatalogService) PictureGetURL(ctx context.Context, key string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// PicturePutURL allocates a storage key for the good's picture, records it
// on the good and returns a presigned PUT URL for the client to upload
// against.
func (s *CatalogService) PicturePutURL(ctx context.Context, goodID int64) (string, string, error) {
	goodRepo := s.repomanager.Goods(s.db)
	if _, err := goodRepo.Get(ctx, goodID); err != nil {
		return "", "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := RandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	if err := goodRepo.SetStorageKey(ctx, goodID, key); err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// Goods lists the catalog with tags and picture URLs.
func (s *CatalogService) Goods(ctx context.Context) ([]GoodView, error) {
	goods, err := s.repomanager.Goods(s.db).List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]GoodView, 0, len(goods))
	for _, g := range goods {
		view := GoodView{
			ID:          g.ID,
			Name:        g.Name,
			PriceCents:  g.PriceCents,
			Description: g.Description,
		}
		for _, t := range g.Tags {
			view.Tags = append(view.Tags, t.Name)
		}
		if g.StorageKey != nil {
			url, err := s.PictureGetURL(ctx, *g.StorageKey)
			if err != nil {
				return nil, err
			}
			view.PictureURL = url
		}
		views = append(views, view)
	}
	return views, nil
}

// Good returns a single catalog good by id.
func (s *CatalogService) Good(ctx context.Context, id int64) (*GoodView, error) {
	g, err := s.repomanager.Goods(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &GoodView{
		ID:          g.ID,
		Name:        g.Name,
		PriceCents:  g.PriceCents,
		Description: g.Description,
	}
	for _, t := range g.Tags {
		view.Tags = append(view.Tags, t.Name)
	}
	if g.StorageKey != nil {
		url, err := s.PictureGetURL(ctx, *g.StorageKey)
		if err != nil {
			return nil, err
		}
		view.PictureURL = url
	}
	return view, nil
}
