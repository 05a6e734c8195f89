// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the business logic that sits between the HTTP
// handlers and the analysis pipeline. This file defines the preview service,
// which turns private gs:// video references into time-limited signed URLs
// that a browser can stream directly.
package services

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/seohyun-lee/gcp-go-video-analyzer/internal/cloud"
)

// DefaultPreviewExpiry bounds how long a preview link stays valid.
const DefaultPreviewExpiry = 15 * time.Minute

// PreviewService signs GCS URLs with the IAM Credentials API so the server
// never needs a local service account key.
type PreviewService struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string
}

// GenerateSignedURL creates a time-limited GET URL for a private video
// object. Only supported video objects are signable; the parse step rejects
// everything else.
//
// Inputs:
//   - ctx: The context for the request.
//   - gcsURI: The video's location as a gs://bucket/object URI.
//   - expires: How long the URL stays valid. Zero means DefaultPreviewExpiry.
//
// Outputs:
//   - string: The generated signed URL.
//   - error: An error if parsing the URI or signing fails.
func (s *PreviewService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	obj, err := cloud.ParseStorageURI(gcsURI)
	if err != nil {
		return "", err
	}
	if expires <= 0 {
		expires = DefaultPreviewExpiry
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,

		// SignBytes delegates the signature to the IAM Credentials API,
		// which works on GCP infrastructure without exported keys.
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).Object(%q).SignedURL: %w", obj.Bucket, obj.Name, err)
	}
	return u, nil
}
