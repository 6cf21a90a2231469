package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ChangeItem(ctx context.Context, ref ItemRef, ch Change) error {
	return m.Called(ctx, ref, ch).Error(0)
}

func (m *mockStore) DeleteItemImage(ctx context.Context, ref ItemRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockStore) TransitionItem(ctx context.Context, ref ItemRef, t Transition) error {
	return m.Called(ctx, ref, t).Error(0)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchMedia(ctx context.Context, fileID string) (File, error) {
	args := m.Called(ctx, fileID)
	return args.Get(0).(File), args.Error(1)
}

func workspaceWith(it Item, opts Options) *Workspace {
	w := NewWorkspace(it.Kind, it.Status, opts)
	w.Browser.Seed([]Item{it})
	w.begin()
	return w
}

func postA() Item {
	return Item{ID: 42, Kind: KindPublication, Status: StatusDraft, Name: "Post A", Text: "Hello", Tags: []string{"x"}}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	ref := ItemRef{Kind: KindPublication, ID: 42}

	t.Run("NothingToSave", func(t *testing.T) {
		store := new(mockStore)
		w := workspaceWith(postA(), Options{})

		res, err := NewCommitter(store, nil).Commit(ctx, w)

		assert.NoError(t, err)
		assert.False(t, res.Saved)
		store.AssertNotCalled(t, "ChangeItem", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "DeleteItemImage", mock.Anything, mock.Anything)
	})

	t.Run("TagsOnly", func(t *testing.T) {
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Name == nil && ch.Text == nil && ch.TagsChanged &&
				assert.ObjectsAreEqual([]string{"x", "y", "z"}, ch.Tags) && ch.Image == ImageKeep
		})).Return(nil).Once()
		w := workspaceWith(postA(), Options{})
		require.NoError(t, w.Editor.EditField(FieldTags, "x, y, z"))
		require.True(t, w.HasChanges())

		res, err := NewCommitter(store, nil).Commit(ctx, w)

		assert.NoError(t, err)
		assert.True(t, res.Saved)
		assert.Len(t, res.History, 1)
		assert.False(t, w.HasChanges())
		assert.Equal(t, []string{"x", "y", "z"}, w.Editor.Original.Tags)
		assert.Equal(t, []string{"x", "y", "z"}, w.Browser.Items[0].Tags)
		store.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "ChangeItem", 1)
	})

	t.Run("UploadReplacesGeneratedImage", func(t *testing.T) {
		it := postA()
		it.Media = RemoteMedia("https://gen/1.png")
		file := File{Name: "photo.jpg", Data: []byte{0xff, 0xd8}}

		fetcher := new(mockFetcher)
		fetcher.On("FetchMedia", ctx, "AgADfile").Return(file, nil).Once()
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Image == ImageReplace && ch.ImageFile != nil &&
				string(ch.ImageFile.Data) == string(file.Data) && !ch.TagsChanged
		})).Return(nil).Once()

		w := workspaceWith(it, Options{})
		require.NoError(t, w.Editor.SetImage(UploadedMedia("AgADfile")))

		res, err := NewCommitter(store, fetcher).Commit(ctx, w)

		assert.NoError(t, err)
		assert.Equal(t, ImageReplace, res.Change.Image)
		assert.Equal(t, "AgADfile", w.Editor.Original.Media.FileID())
		assert.Empty(t, w.Editor.Original.Media.URL())
		assert.False(t, w.HasChanges())
		store.AssertNotCalled(t, "DeleteItemImage", mock.Anything, mock.Anything)
		fetcher.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("RemovedImage", func(t *testing.T) {
		it := postA()
		it.Media = RemoteMedia("https://gen/1.png")
		store := new(mockStore)
		store.On("DeleteItemImage", ctx, ref).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Image == ImageDelete && ch.ImageFile == nil
		})).Return(nil).Once()

		w := workspaceWith(it, Options{})
		require.NoError(t, w.Editor.ClearImage())

		_, err := NewCommitter(store, nil).Commit(ctx, w)

		assert.NoError(t, err)
		assert.False(t, w.Editor.Original.Media.Present())
		store.AssertExpectations(t)
	})

	t.Run("BackendFailureKeepsEdits", func(t *testing.T) {
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.Anything).Return(errors.New("503")).Once()
		w := workspaceWith(postA(), Options{})
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		res, err := NewCommitter(store, nil).Commit(ctx, w)

		assert.Error(t, err)
		assert.False(t, res.Saved)
		assert.True(t, w.HasChanges())
		assert.Equal(t, "Post A", w.Editor.Original.Name)
	})

	t.Run("RetryAfterImageDeletedButChangeFailed", func(t *testing.T) {
		// Arrange
		it := postA()
		it.Media = RemoteMedia("https://gen/1.png")
		store := new(mockStore)
		store.On("DeleteItemImage", ctx, ref).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.Anything).Return(errors.New("503")).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Image == ImageKeep && ch.Name != nil && *ch.Name == "Post B"
		})).Return(nil).Once()
		w := workspaceWith(it, Options{})
		require.NoError(t, w.Editor.ClearImage())
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))
		committer := NewCommitter(store, nil)

		// Act
		_, firstErr := committer.Commit(ctx, w)
		res, retryErr := committer.Commit(ctx, w)

		// Assert
		assert.Error(t, firstErr)
		assert.NoError(t, retryErr)
		assert.True(t, res.Saved)
		assert.False(t, w.Editor.Original.Media.Present())
		assert.False(t, w.Browser.Items[0].Media.Present())
		assert.Equal(t, "Post B", w.Editor.Original.Name)
		store.AssertNumberOfCalls(t, "DeleteItemImage", 1)
		store.AssertExpectations(t)
	})

	t.Run("EmptyWorkspace", func(t *testing.T) {
		w := NewWorkspace(KindPublication, StatusDraft, Options{})
		_, err := NewCommitter(new(mockStore), nil).Commit(ctx, w)
		assert.ErrorIs(t, err, ErrEmptyList)
	})
}

func TestCommitAndTransition(t *testing.T) {
	ctx := context.Background()
	ref := ItemRef{Kind: KindPublication, ID: 42}
	approve := Transition{Action: ActionApprove, ActorID: 9}

	t.Run("CommitsThenRemoves", func(t *testing.T) {
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.Anything).Return(nil).Once()
		store.On("TransitionItem", ctx, ref, approve).Return(nil).Once()
		w := workspaceWith(postA(), Options{})
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		res, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, approve)

		assert.NoError(t, err)
		assert.True(t, res.Saved)
		assert.True(t, w.Browser.Empty())
		assert.False(t, w.Editor.Active())
		store.AssertExpectations(t)
	})

	t.Run("DeleteSkipsCommit", func(t *testing.T) {
		del := Transition{Action: ActionDelete, ActorID: 9}
		store := new(mockStore)
		store.On("TransitionItem", ctx, ref, del).Return(nil).Once()
		w := workspaceWith(postA(), Options{})
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		_, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, del)

		assert.NoError(t, err)
		store.AssertNotCalled(t, "ChangeItem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("FailureWithoutRollback", func(t *testing.T) {
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.Anything).Return(nil).Once()
		store.On("TransitionItem", ctx, ref, approve).Return(errors.New("timeout")).Once()
		w := workspaceWith(postA(), Options{})
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		res, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, approve)

		assert.Error(t, err)
		assert.True(t, res.Saved)
		assert.Equal(t, 1, w.Browser.Len())
		assert.Equal(t, "Post B", w.Editor.Original.Name)
		store.AssertNumberOfCalls(t, "ChangeItem", 1)
	})

	t.Run("FailureWithRollback", func(t *testing.T) {
		store := new(mockStore)
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Name != nil && *ch.Name == "Post B"
		})).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Name != nil && *ch.Name == "Post A"
		})).Return(nil).Once()
		store.On("TransitionItem", ctx, ref, approve).Return(errors.New("timeout")).Once()
		w := workspaceWith(postA(), Options{RollbackOnTransitionFailure: true})
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		_, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, approve)

		assert.Error(t, err)
		assert.Equal(t, "Post A", w.Editor.Original.Name)
		assert.Equal(t, "Post B", w.Editor.Working.Name)
		assert.True(t, w.HasChanges())
		assert.Equal(t, "Post A", w.Browser.Items[0].Name)
		store.AssertExpectations(t)
	})

	t.Run("RollbackKeepsDeletedImage", func(t *testing.T) {
		// Arrange
		it := postA()
		it.Media = RemoteMedia("https://gen/1.png")
		store := new(mockStore)
		store.On("DeleteItemImage", ctx, ref).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Image == ImageDelete
		})).Return(nil).Once()
		store.On("TransitionItem", ctx, ref, approve).Return(errors.New("502")).Once()
		w := workspaceWith(it, Options{RollbackOnTransitionFailure: true})
		require.NoError(t, w.Editor.ClearImage())

		// Act
		_, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, approve)

		// Assert
		assert.Error(t, err)
		assert.False(t, w.Editor.Original.Media.Present())
		assert.False(t, w.Browser.Items[0].Media.Present())
		store.AssertNumberOfCalls(t, "ChangeItem", 1)
		store.AssertExpectations(t)
	})

	t.Run("RollbackRevertsTextButNotImage", func(t *testing.T) {
		// Arrange
		it := postA()
		it.Media = RemoteMedia("https://gen/1.png")
		store := new(mockStore)
		store.On("DeleteItemImage", ctx, ref).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Name != nil && *ch.Name == "Post B"
		})).Return(nil).Once()
		store.On("ChangeItem", ctx, ref, mock.MatchedBy(func(ch Change) bool {
			return ch.Name != nil && *ch.Name == "Post A" && ch.Image == ImageKeep
		})).Return(nil).Once()
		store.On("TransitionItem", ctx, ref, approve).Return(errors.New("502")).Once()
		w := workspaceWith(it, Options{RollbackOnTransitionFailure: true})
		require.NoError(t, w.Editor.ClearImage())
		require.NoError(t, w.Editor.EditField(FieldName, "Post B"))

		// Act
		_, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, approve)

		// Assert
		assert.Error(t, err)
		assert.Equal(t, "Post A", w.Editor.Original.Name)
		assert.False(t, w.Editor.Original.Media.Present())
		store.AssertExpectations(t)
	})

	t.Run("RejectCarriesComment", func(t *testing.T) {
		reject := Transition{Action: ActionReject, ActorID: 9, Comment: "please fix the title"}
		store := new(mockStore)
		store.On("TransitionItem", ctx, ref, reject).Return(nil).Once()
		w := workspaceWith(postA(), Options{})

		_, err := NewCommitter(store, nil).CommitAndTransition(ctx, w, reject)

		assert.NoError(t, err)
		store.AssertExpectations(t)
	})
}
