package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meshvault/model-api/db"
	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/internal/service"
	"meshvault/model-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gin.Engine, *internal.Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Set("security.jwt_secret", "test-secret")
	viper.Set("storage.type", "db")
	viper.Set("storage.quota", int64(500<<20))
	viper.Set("upload.max_size", int64(10<<20))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	d := &internal.Deps{
		DB:       conn,
		Uploader: service.NewUploader(conn, nil),
	}

	r := gin.New()
	r.Use(middleware.NewRequestIDMiddleware())

	jwtGate := middleware.NewJWTMiddleware(conn)
	h := func(fn func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
		return func(c *gin.Context) { fn(c, d) }
	}

	// Same body cap the router applies to the upload route
	uploadBody := middleware.BodySizeLimiter(viper.GetInt64("storage.quota") + 1<<20)

	g := r.Group("/api/models", jwtGate)
	g.GET("", h(List))
	g.POST("", uploadBody, h(Upload))
	g.GET("/storage/info", h(StorageInfo))
	g.GET("/:id", h(Fetch))
	g.GET("/:id/download", h(Download))
	g.GET("/:id/thumbnail", h(Thumbnail))
	g.GET("/:id/assets", h(ListAssets))
	g.GET("/:id/assets/:file", h(FetchAsset))
	g.DELETE("/:id", h(Delete))

	return r, d
}

func makeUser(t *testing.T, d *internal.Deps, id, username string) string {
	t.Helper()

	require.NoError(t, d.DB.Create(&model.User{
		ID:            id,
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  "$argon2id$fake",
		EmailVerified: true,
	}).Error)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  id,
		"username": username,
		"is_admin": false,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	signed, err := tok.SignedString([]byte(viper.GetString("security.jwt_secret")))
	require.NoError(t, err)
	return "Bearer " + signed
}

// uploadModel posts a multipart upload with the given file names and
// contents.
func uploadModel(t *testing.T, r *gin.Engine, token, name string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	require.NoError(t, w.WriteField("name", name))
	for fname, data := range files {
		fw, err := w.CreateFormFile("files", fname)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/models", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", token)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func doAuthed(t *testing.T, r *gin.Engine, token, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", token)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUploadAndFetch(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "uploaduser000001", "alice")

	w := uploadModel(t, r, token, "Cube", map[string][]byte{
		"cube.obj":  []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"),
		"cube.mtl":  []byte("newmtl white\n"),
		"brick.png": {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := parseBody(t, w)
	m := body["model"].(map[string]any)
	require.Equal(t, "Cube", m["name"])
	require.Equal(t, "OBJ", m["fileFormat"])
	require.Equal(t, "Cube.obj", m["fileName"])

	var files []model.ModelFile
	require.NoError(t, d.DB.Order("file_name").Find(&files).Error)
	require.Len(t, files, 3)

	mainCount := 0
	for _, f := range files {
		if f.MainFile {
			mainCount++
			require.Equal(t, "cube.obj", f.FileName)
			require.Equal(t, "text/plain", f.MimeType)
		}
		require.NotEmpty(t, f.Data)
		require.Empty(t, f.BlobKey)
	}
	require.Equal(t, 1, mainCount)

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/"+m["id"].(string))
	require.Equal(t, http.StatusOK, w.Code)

	w = doAuthed(t, r, token, http.MethodGet, "/api/models")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUploadRejectsBadFileSets(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "baduploaduser001", "alice")

	// No 3D file at all
	w := uploadModel(t, r, token, "Nothing", map[string][]byte{
		"texture.png": []byte("img"),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Two 3D files in one upload
	w = uploadModel(t, r, token, "Twins", map[string][]byte{
		"a.stl": []byte("solid a"),
		"b.stl": []byte("solid b"),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Missing name
	w = uploadModel(t, r, token, "", map[string][]byte{
		"a.stl": []byte("solid a"),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// None of the rejects left rows behind
	var count int64
	d.DB.Model(&model.Model{}).Count(&count)
	require.Zero(t, count)
}

// Several files each under the per-file cap are a legal upload even when
// their total exceeds it. Only the per-file cap and the quota bound an
// upload, not a whole-body limit at the per-file size.
func TestUploadManyFilesUnderPerFileCap(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "manyfilesuser001", "alice")

	viper.Set("upload.max_size", int64(100))
	defer viper.Set("upload.max_size", int64(10<<20))

	w := uploadModel(t, r, token, "Scene", map[string][]byte{
		"scene.gltf": bytes.Repeat([]byte("a"), 80),
		"scene.bin":  bytes.Repeat([]byte("b"), 80),
		"albedo.png": bytes.Repeat([]byte("c"), 80),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var fileCount int64
	d.DB.Model(&model.ModelFile{}).Count(&fileCount)
	require.Equal(t, int64(3), fileCount)
}

func TestUploadQuotaExceeded(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "quotauser0000001", "alice")

	viper.Set("storage.quota", int64(10))
	defer viper.Set("storage.quota", int64(500<<20))

	w := uploadModel(t, r, token, "Big", map[string][]byte{
		"big.stl": []byte("this payload is larger than ten bytes"),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	body := parseBody(t, w)
	require.Equal(t, float64(0), body["usedBytes"])
	require.Equal(t, float64(10), body["maxBytes"])

	var count int64
	d.DB.Model(&model.Model{}).Count(&count)
	require.Zero(t, count)
}

func TestDownloadReturnsUploadedBytes(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "downloaduser0001", "alice")

	payload := []byte("solid cube\nfacet normal 0 0 0\nendsolid\n")
	w := uploadModel(t, r, token, "Cube", map[string][]byte{
		"cube.stl": payload,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	id := parseBody(t, w)["model"].(map[string]any)["id"].(string)

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/"+id+"/download")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, payload, w.Body.Bytes())
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, w.Header().Get("Content-Disposition"), "Cube.stl")
	require.Equal(t, "application/vnd.ms-pki.stl", w.Header().Get("Content-Type"))
}

func TestAssets(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "assetsuser000001", "alice")

	w := uploadModel(t, r, token, "Scene", map[string][]byte{
		"scene.gltf": []byte(`{"asset":{"version":"2.0"}}`),
		"scene.bin":  []byte("binarybuffer"),
		"albedo.png": []byte("notreallyapng"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := parseBody(t, w)["model"].(map[string]any)["id"].(string)

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/"+id+"/assets")
	require.Equal(t, http.StatusOK, w.Code)

	var assets []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assets))
	require.Len(t, assets, 2)
	require.Equal(t, "albedo.png", assets[0]["fileName"])
	require.Equal(t, "scene.bin", assets[1]["fileName"])

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/"+id+"/assets/scene.bin")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "binarybuffer", w.Body.String())

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/"+id+"/assets/missing.png")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnershipScoping(t *testing.T) {
	r, d := setupTest(t)
	owner := makeUser(t, d, "owneruser0000001", "alice")
	other := makeUser(t, d, "otheruser0000001", "bob")

	w := uploadModel(t, r, owner, "Private", map[string][]byte{
		"part.ply": []byte("ply\nformat ascii 1.0\n"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := parseBody(t, w)["model"].(map[string]any)["id"].(string)

	// Another user sees neither metadata nor payload, and can't delete
	w = doAuthed(t, r, other, http.MethodGet, "/api/models/"+id)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doAuthed(t, r, other, http.MethodGet, "/api/models/"+id+"/download")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doAuthed(t, r, other, http.MethodDelete, "/api/models/"+id)
	require.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	d.DB.Model(&model.Model{}).Count(&count)
	require.Equal(t, int64(1), count)

	// The other user's list stays empty
	w = doAuthed(t, r, other, http.MethodGet, "/api/models")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestDelete(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "deleteuser000001", "alice")

	w := uploadModel(t, r, token, "Doomed", map[string][]byte{
		"doomed.glb": []byte("glTFbinarystuff"),
		"skin.png":   []byte("img"),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := parseBody(t, w)["model"].(map[string]any)["id"].(string)

	w = doAuthed(t, r, token, http.MethodDelete, "/api/models/"+id)
	require.Equal(t, http.StatusOK, w.Code)

	var modelCount, fileCount int64
	d.DB.Model(&model.Model{}).Count(&modelCount)
	d.DB.Model(&model.ModelFile{}).Count(&fileCount)
	require.Zero(t, modelCount)
	require.Zero(t, fileCount)

	w = doAuthed(t, r, token, http.MethodDelete, "/api/models/"+id)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorageInfo(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "storageuser00001", "alice")

	w := doAuthed(t, r, token, http.MethodGet, "/api/models/storage/info")
	require.Equal(t, http.StatusOK, w.Code)

	body := parseBody(t, w)
	require.Equal(t, float64(0), body["usedBytes"])
	require.Equal(t, float64(0), body["modelCount"])

	payload := []byte("solid cube with some bytes in it")
	w = uploadModel(t, r, token, "Cube", map[string][]byte{"cube.stl": payload})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doAuthed(t, r, token, http.MethodGet, "/api/models/storage/info")
	require.Equal(t, http.StatusOK, w.Code)

	body = parseBody(t, w)
	require.Equal(t, float64(len(payload)), body["usedBytes"])
	require.Equal(t, float64(500<<20), body["maxBytes"])
	require.Equal(t, float64(1), body["modelCount"])
}

func TestThumbnail(t *testing.T) {
	r, d := setupTest(t)
	token := makeUser(t, d, "thumbuser0000001", "alice")

	thumb := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 1, 2, 3}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Cube"))
	fw, err := mw.CreateFormFile("files", "cube.stl")
	require.NoError(t, err)
	fw.Write([]byte("solid cube"))
	fw, err = mw.CreateFormFile("thumbnail", "thumb.png")
	require.NoError(t, err)
	fw.Write(thumb)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/models", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	m := parseBody(t, w)["model"].(map[string]any)
	require.Equal(t, fmt.Sprintf("/api/models/%s/thumbnail", m["id"]), m["thumbnailUrl"])

	w2 := doAuthed(t, r, token, http.MethodGet, "/api/models/"+m["id"].(string)+"/thumbnail")
	require.Equal(t, http.StatusOK, w2.Code)
	require.Equal(t, thumb, w2.Body.Bytes())
	require.Equal(t, "image/png", w2.Header().Get("Content-Type"))
}

func TestRequiresAuth(t *testing.T) {
	r, _ := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
