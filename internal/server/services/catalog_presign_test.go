package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "webshop/server/internal/server/config"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
)

func newCatalogForPresign(t *testing.T, rm repomanager.RepositoryManager) (*CatalogService, *sql.DB) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "webshop",
	}
	return NewCatalogService(db, rm, cfg), db
}

func stubPresignSeams(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func Test_getPresignClient_CatalogSuccessAndError(t *testing.T) {
	svc, db := newCatalogForPresign(t, &fakeRepoManager{})
	defer db.Close()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient()
	if err != nil || pc == nil {
		t.Fatalf("getPresignClient: pc=%v err=%v", pc, err)
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %q", capturedBaseEndpoint)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	if _, err := svc.getPresignClient(); err == nil || err.Error() != "load-fail" {
		t.Fatalf("expected load-fail, got %v", err)
	}
}

func TestPictureGetURL(t *testing.T) {
	svc, db := newCatalogForPresign(t, &fakeRepoManager{})
	defer db.Close()
	stubPresignSeams(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Bucket != "webshop" || *in.Key != "goods/k1" {
			t.Fatalf("unexpected presign input: %q %q", *in.Bucket, *in.Key)
		}
		return &v4.PresignedHTTPRequest{URL: "https://signed/get"}, nil
	}

	url, err := svc.PictureGetURL(context.Background(), "goods/k1")
	if err != nil || url != "https://signed/get" {
		t.Fatalf("PictureGetURL: url=%q err=%v", url, err)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}
	if _, err := svc.PictureGetURL(context.Background(), "goods/k1"); err == nil {
		t.Fatalf("expected presign error")
	}
}

func TestPicturePutURL(t *testing.T) {
	goods := &fakeGoodsRepo{goods: map[int64]*models.Good{3: {ID: 3, Name: "mug"}}}
	svc, db := newCatalogForPresign(t, &fakeRepoManager{g: goods})
	defer db.Close()
	stubPresignSeams(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://signed/put"}, nil
	}

	key, url, err := svc.PicturePutURL(context.Background(), 3)
	if err != nil {
		t.Fatalf("PicturePutURL error: %v", err)
	}
	if url != "https://signed/put" {
		t.Fatalf("unexpected URL: %q", url)
	}
	if !strings.HasPrefix(key, "goods/") {
		t.Fatalf("unexpected storage key: %q", key)
	}
	if goods.storageKeys[3] != key {
		t.Fatalf("storage key not recorded on the good")
	}
}

func TestPicturePutURL_UnknownGood(t *testing.T) {
	svc, db := newCatalogForPresign(t, &fakeRepoManager{g: &fakeGoodsRepo{}})
	defer db.Close()
	stubPresignSeams(t)

	if _, _, err := svc.PicturePutURL(context.Background(), 404); err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestPicturePutURL_PresignError(t *testing.T) {
	goods := &fakeGoodsRepo{goods: map[int64]*models.Good{3: {ID: 3}}}
	svc, db := newCatalogForPresign(t, &fakeRepoManager{g: goods})
	defer db.Close()
	stubPresignSeams(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}

	if _, _, err := svc.PicturePutURL(context.Background(), 3); err == nil {
		t.Fatalf("expected presign error")
	}
	if len(goods.storageKeys) != 0 {
		t.Fatalf("storage key must not be written on presign failure")
	}
}

func TestGoods_Views(t *testing.T) {
	key := "goods/k1"
	goods := &fakeGoodsRepo{
		goods: map[int64]*models.Good{
			1: {ID: 1, Name: "mug", PriceCents: 990, StorageKey: &key, Tags: []models.Tag{{ID: 1, Name: "kitchen"}}},
		},
		listOut: []models.Good{
			{ID: 1, Name: "mug", PriceCents: 990, StorageKey: &key, Tags: []models.Tag{{ID: 1, Name: "kitchen"}}},
			{ID: 2, Name: "shirt", PriceCents: 2590},
		},
	}
	svc, db := newCatalogForPresign(t, &fakeRepoManager{g: goods})
	defer db.Close()
	stubPresignSeams(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://signed/" + *in.Key}, nil
	}

	views, err := svc.Goods(context.Background())
	if err != nil {
		t.Fatalf("Goods error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	if views[0].PictureURL != "https://signed/goods/k1" {
		t.Fatalf("picture URL not signed: %q", views[0].PictureURL)
	}
	if len(views[0].Tags) != 1 || views[0].Tags[0] != "kitchen" {
		t.Fatalf("tags not flattened: %v", views[0].Tags)
	}
	if views[1].PictureURL != "" {
		t.Fatalf("good without picture must have empty URL")
	}

	view, err := svc.Good(context.Background(), 1)
	if err != nil || view.Name != "mug" || view.PictureURL != "https://signed/goods/k1" {
		t.Fatalf("Good view: %+v err=%v", view, err)
	}
}
