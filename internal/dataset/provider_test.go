package dataset_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-claims-checker/internal/adapter"
	"github.com/feral-file/ff-claims-checker/internal/dataset"
	"github.com/feral-file/ff-claims-checker/internal/domain"
	"github.com/feral-file/ff-claims-checker/internal/mocks"
)

const (
	datasetPath   = "addressTokenIds.json"
	mixedContract = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"
	mixedOwner    = "0x1111111111111111111111111111111111111AaA"
)

func TestFileProvider_Load(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		readErr      error
		expectedErr  error
		validateFunc func(t *testing.T, ds domain.CollectionDataset)
	}{
		{
			name: "wrapped scraper metadata",
			content: `{
				"0xabc": {
					"0x111": {
						"tokenIds": [1, 2],
						"metadata": {
							"1": {"tokenId": 1, "metadata": {"name": "One", "attributes": [{"trait_type": "Song", "value": "Corner Tap"}, {"trait_type": "Frame", "value": "Red"}]}},
							"2": {"tokenId": 2, "metadata": {"name": "Two", "attributes": [{"trait_type": "Edition", "value": 7}]}}
						}
					}
				}
			}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				holding := ds["0xabc"]["0x111"]
				require.NotNil(t, holding)
				assert.NoError(t, holding.Malformed)
				assert.Equal(t, "0x111", holding.OwnerAddress)
				assert.Equal(t, []uint64{1, 2}, holding.TokenIDs)
				require.Contains(t, holding.Metadata, uint64(1))
				assert.Equal(t, "One", holding.Metadata[1].Name)
				assert.Equal(t, []domain.Attribute{
					{TraitType: "Song", Value: "Corner Tap"},
					{TraitType: "Frame", Value: "Red"},
				}, holding.Metadata[1].Attributes)
				assert.Equal(t, "7", holding.Metadata[2].Attributes[0].Value)
			},
		},
		{
			name: "legacy tokenId key and bare metadata",
			content: `{
				"0xabc": {
					"0x222": {
						"tokenId": ["5"],
						"metadata": {"5": {"name": "Five", "attributes": [{"trait_type": "Colors", "value": "Gold"}]}}
					}
				}
			}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				holding := ds["0xabc"]["0x222"]
				require.NotNil(t, holding)
				assert.NoError(t, holding.Malformed)
				assert.Equal(t, []uint64{5}, holding.TokenIDs)
				assert.Equal(t, "Gold", holding.Metadata[5].Attributes[0].Value)
			},
		},
		{
			name: "missing and null metadata are not errors",
			content: `{
				"0xabc": {
					"0x333": {"tokenIds": [1, 2], "metadata": {"1": null}},
					"0x444": {"tokenIds": [3]}
				}
			}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				assert.NoError(t, ds["0xabc"]["0x333"].Malformed)
				assert.Empty(t, ds["0xabc"]["0x333"].Metadata)
				assert.NoError(t, ds["0xabc"]["0x444"].Malformed)
				assert.Equal(t, []uint64{3}, ds["0xabc"]["0x444"].TokenIDs)
			},
		},
		{
			name: "malformed owner entries are flagged",
			content: `{
				"0xabc": {
					"0x555": {"tokenIds": ["abc"]},
					"0x666": {"tokenIds": [1], "metadata": {"one": {}}},
					"0x777": ["not", "an", "object"],
					"0x888": {"tokenIds": [1], "metadata": {"1": {"attributes": [{"trait_type": "Song", "value": {"nested": true}}]}}},
					"0x999": {"tokenIds": [1]}
				}
			}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				owners := ds["0xabc"]
				for _, owner := range []string{"0x555", "0x666", "0x777", "0x888"} {
					require.Contains(t, owners, owner)
					assert.Error(t, owners[owner].Malformed, owner)
				}
				assert.NoError(t, owners["0x999"].Malformed)
			},
		},
		{
			name:    "hex addresses are lower-cased",
			content: `{"` + mixedContract + `": {"` + mixedOwner + `": {"tokenIds": [9]}}}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				owners, ok := ds["0xabcdef0123456789abcdef0123456789abcdef01"]
				require.True(t, ok)
				holding, ok := owners["0x1111111111111111111111111111111111111aaa"]
				require.True(t, ok)
				assert.Equal(t, "0x1111111111111111111111111111111111111aaa", holding.OwnerAddress)
			},
		},
		{
			name:    "empty object",
			content: `{}`,
			validateFunc: func(t *testing.T, ds domain.CollectionDataset) {
				assert.NotNil(t, ds)
				assert.Empty(t, ds)
			},
		},
		{
			name:        "unreadable file",
			readErr:     assert.AnError,
			expectedErr: domain.ErrDataset,
		},
		{
			name:        "top level is not an object",
			content:     `[1, 2, 3]`,
			expectedErr: domain.ErrDataset,
		},
		{
			name:        "top level is null",
			content:     `null`,
			expectedErr: domain.ErrDataset,
		},
		{
			name:        "contract entry is not an object",
			content:     `{"0xabc": 42}`,
			expectedErr: domain.ErrDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockFS := mocks.NewMockFileSystem(ctrl)
			if tt.readErr != nil {
				mockFS.EXPECT().ReadFile(datasetPath).Return(nil, tt.readErr)
			} else {
				mockFS.EXPECT().ReadFile(datasetPath).Return([]byte(tt.content), nil)
			}

			provider := dataset.NewFileProvider(datasetPath, mockFS, adapter.NewJSON())
			ds, err := provider.Load(context.Background())

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				if tt.readErr != nil {
					assert.ErrorIs(t, err, tt.readErr)
				}
				assert.Nil(t, ds)
				return
			}

			require.NoError(t, err)
			tt.validateFunc(t, ds)
		})
	}
}

func TestFileProvider_Load_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := dataset.NewFileProvider(datasetPath, mocks.NewMockFileSystem(ctrl), adapter.NewJSON())
	_, err := provider.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", dataset.NormalizeAddress(mixedContract))
	assert.Equal(t, "0xABC", dataset.NormalizeAddress("0xABC"))
	assert.Equal(t, "tz1abc", dataset.NormalizeAddress("tz1abc"))
}
