package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/s3"
)

// memoryBucket is a single-part object store good enough for the uploader
// and downloader managers.
type memoryBucket struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBucket) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Key)] = data
	m.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &awss3.PutObjectOutput{}, nil
}

func (m *memoryBucket) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *memoryBucket) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(m.objects, aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func (m *memoryBucket) UploadPart(context.Context, *awss3.UploadPartInput, ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memoryBucket) CreateMultipartUpload(context.Context, *awss3.CreateMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memoryBucket) CompleteMultipartUpload(context.Context, *awss3.CompleteMultipartUploadInput, ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

func (m *memoryBucket) AbortMultipartUpload(context.Context, *awss3.AbortMultipartUploadInput, ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("multipart not supported")
}

type stubPresigner struct {
	keys []string
}

func (p *stubPresigner) PresignGetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.PresignOptions)) (*s3.PresignedRequest, error) {
	p.keys = append(p.keys, aws.ToString(in.Key))
	return &s3.PresignedRequest{URL: "https://signed.example.com/" + aws.ToString(in.Key) + "?X-Amz-Signature=abc"}, nil
}

var _ = Describe("Storage", func() {
	var (
		ctx     context.Context
		bucket  *memoryBucket
		storage *s3.Storage
	)

	BeforeEach(func() {
		ctx = context.Background()
		bucket = newMemoryBucket()
		storage = &s3.Storage{Client: bucket, Bucket: "proposals", Log: zap.NewNop().Sugar()}
	})

	It("should upload, download and delete an artifact", func() {
		key := s3.ArtifactKey("org-1", "abc", "OOH_Media_Portfolio.pdf")
		Expect(key).To(Equal("org-1/abc/OOH_Media_Portfolio.pdf"))

		Expect(storage.Upload(ctx, key, "application/pdf", []byte("%PDF-1.3"))).To(Succeed())
		Expect(bucket.types[key]).To(Equal("application/pdf"))

		data, err := storage.Download(ctx, key)
		Expect(err).ToNot(HaveOccurred())
		Expect(data).To(Equal([]byte("%PDF-1.3")))

		Expect(storage.Delete(ctx, key)).To(Succeed())
		_, err = storage.Download(ctx, key)
		Expect(err).To(HaveOccurred())
	})

	Describe("ResolveURL", func() {
		It("should pass absolute urls through", func() {
			u, err := storage.ResolveURL("https://cdn.example.com/a.png")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(Equal("https://cdn.example.com/a.png"))
		})

		It("should join stored paths onto the public base url", func() {
			storage.PublicBaseURL = "https://assets.example.com/media/"
			u, err := storage.ResolveURL("/logos/acme.png")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(Equal("https://assets.example.com/media/logos/acme.png"))
		})

		It("should presign stored paths without a public base url", func() {
			presigner := &stubPresigner{}
			storage.Presigner = presigner
			u, err := storage.ResolveURL("logos/acme.png")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(HavePrefix("https://signed.example.com/logos/acme.png"))
			Expect(presigner.keys).To(Equal([]string{"logos/acme.png"}))
		})

		It("should fail when the path cannot be resolved", func() {
			_, err := storage.ResolveURL("logos/acme.png")
			Expect(err).To(MatchError(s3.ErrNoPublicURL))
		})

		DescribeTable("should refuse keys outside the asset prefixes",
			func(ref string) {
				presigner := &stubPresigner{}
				storage.Presigner = presigner
				_, err := storage.ResolveURL(ref)
				Expect(errors.Is(err, s3.ErrForbiddenKey)).To(BeTrue(), "%v", err)
				Expect(presigner.keys).To(BeEmpty())
			},
			Entry("another org's artifact", "org-2/3f1c/proposal.pdf"),
			Entry("parent segments", "logos/../org-2/3f1c/proposal.pdf"),
			Entry("bare prefix", "logos/"),
			Entry("prefix without separator", "logosx/acme.png"),
		)

		It("should honour configured asset prefixes", func() {
			storage.PublicBaseURL = "https://assets.example.com"
			storage.AssetPrefixes = []string{"brand/"}
			u, err := storage.ResolveURL("brand/acme.png")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(Equal("https://assets.example.com/brand/acme.png"))

			_, err = storage.ResolveURL("logos/acme.png")
			Expect(errors.Is(err, s3.ErrForbiddenKey)).To(BeTrue())
		})
	})
})
