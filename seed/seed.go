// Package seed loads the demo catalog and vouchers behind the -seed flag.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	counterControllers "github.com/junaidrashid-git/bookstore-api/controllers/counter"
	productcontroller "github.com/junaidrashid-git/bookstore-api/controllers/product"
	voucherControllers "github.com/junaidrashid-git/bookstore-api/controllers/voucher"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type book struct {
	title, author, description string
	price                      int64
	stock                      int
	category                   string
	image                      string
}

type voucher struct {
	code, description string
	percent           int64
	maxDiscount       int64
	minOrder          int64
	maxUsage          int
	validFor          time.Duration
}

var categories = []models.Category{
	{Name: "Văn học Việt Nam", Description: "Các tác phẩm văn học của các tác giả Việt Nam"},
	{Name: "Văn học nước ngoài", Description: "Các tác phẩm văn học dịch từ nước ngoài"},
	{Name: "Kinh tế - Kinh doanh", Description: "Sách kinh tế, quản trị, tài chính, đầu tư"},
	{Name: "Kỹ năng sống", Description: "Sách phát triển bản thân, kỹ năng mềm"},
	{Name: "Lập trình - CNTT", Description: "Sách về lập trình, công nghệ thông tin"},
	{Name: "Truyện tranh", Description: "Manga, comic và truyện tranh"},
}

var books = []book{
	{"Số Đỏ", "Vũ Trọng Phụng", "Tiểu thuyết trào phúng nổi tiếng", 85000, 50, "Văn học Việt Nam",
		"https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=300&h=400&fit=crop"},
	{"Tắt Đèn", "Ngô Tất Tố", "Tác phẩm về đời sống nông dân Việt Nam", 75000, 45, "Văn học Việt Nam",
		"https://images.unsplash.com/photo-1512820790803-83ca734da794?w=300&h=400&fit=crop"},
	{"Truyện Kiều", "Nguyễn Du", "Kiệt tác văn học cổ điển Việt Nam", 120000, 35, "Văn học Việt Nam",
		"https://images.unsplash.com/photo-1476275466078-4007374efbbe?w=300&h=400&fit=crop"},
	{"Đắc Nhân Tâm", "Dale Carnegie", "Nghệ thuật giao tiếp và ứng xử", 108000, 200, "Văn học nước ngoài",
		"https://images.unsplash.com/photo-1589998059171-988d887df646?w=300&h=400&fit=crop"},
	{"Nhà Giả Kim", "Paulo Coelho", "Hành trình theo đuổi giấc mơ", 79000, 150, "Văn học nước ngoài",
		"https://images.unsplash.com/photo-1495446815901-a7297e633e8d?w=300&h=400&fit=crop"},
	{"1984", "George Orwell", "Tiểu thuyết dystopia kinh điển", 135000, 60, "Văn học nước ngoài",
		"https://images.unsplash.com/photo-1541963463532-d68292c34b19?w=300&h=400&fit=crop"},
	{"Cha Giàu Cha Nghèo", "Robert Kiyosaki", "Bài học về tiền bạc", 155000, 90, "Kinh tế - Kinh doanh", ""},
	{"Khởi Nghiệp Tinh Gọn", "Eric Ries", "Phương pháp xây dựng startup", 169000, 40, "Kinh tế - Kinh doanh", ""},
	{"7 Thói Quen Hiệu Quả", "Stephen Covey", "7 thói quen thành công", 145000, 70, "Kỹ năng sống", ""},
	{"Clean Code", "Robert C. Martin", "Nghệ thuật viết code sạch", 350000, 25, "Lập trình - CNTT", ""},
	{"Head First Java", "Kathy Sierra", "Học lập trình Java", 420000, 20, "Lập trình - CNTT", ""},
	{"One Piece Tập 1", "Eiichiro Oda", "Hành trình tìm kho báu", 25000, 300, "Truyện tranh", ""},
}

var vouchers = []voucher{
	{"WELCOME10", "Giảm 10% cho đơn hàng đầu tiên", 10, 50000, 100000, 1000, 180 * 24 * time.Hour},
	{"SAVE20", "Giảm 20% cho đơn hàng trên 300K", 20, 200000, 300000, 500, 90 * 24 * time.Hour},
	{"FLASH50", "Giảm 50% tối đa 500K", 50, 500000, 1000000, 50, 7 * 24 * time.Hour},
}

// Run wipes the catalog, resets every counter and loads the demo data, so
// book and category ids start from 1 again.
func Run(ctx context.Context, db *gorm.DB, now time.Time) error {
	if err := counterControllers.ResetAll(ctx, db); err != nil {
		return err
	}

	// Each wipe needs its own statement; a shared *gorm.DB would carry the
	// first model into the second Delete.
	wipe := func() *gorm.DB {
		return db.WithContext(ctx).Unscoped().Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	if err := wipe().Delete(&models.Book{}).Error; err != nil {
		return fmt.Errorf("wipe books: %w", err)
	}
	if err := wipe().Delete(&models.Category{}).Error; err != nil {
		return fmt.Errorf("wipe categories: %w", err)
	}

	ids := make(map[string]uint, len(categories))
	for _, cat := range categories {
		if err := productcontroller.CreateCategory(ctx, db, &cat); err != nil {
			return fmt.Errorf("seed category %q: %w", cat.Name, err)
		}
		ids[cat.Name] = cat.ID
	}

	for _, b := range books {
		if err := productcontroller.CreateBook(ctx, db, &models.Book{
			Title:       b.title,
			Author:      b.author,
			Description: b.description,
			Price:       decimal.NewFromInt(b.price),
			Stock:       b.stock,
			CategoryID:  ids[b.category],
			ImageURL:    b.image,
		}); err != nil {
			return fmt.Errorf("seed book %q: %w", b.title, err)
		}
	}

	for _, v := range vouchers {
		if err := db.WithContext(ctx).Where("code = ?", v.code).Delete(&models.Voucher{}).Error; err != nil {
			return fmt.Errorf("wipe voucher %s: %w", v.code, err)
		}
		if err := voucherControllers.Create(ctx, db, &models.Voucher{
			Code:              v.code,
			Description:       v.description,
			DiscountPercent:   decimal.NewFromInt(v.percent),
			MaxDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(v.maxDiscount)),
			MinOrderAmount:    decimal.NewNullDecimal(decimal.NewFromInt(v.minOrder)),
			MaxUsage:          v.maxUsage,
			ValidFrom:         now.Add(-24 * time.Hour),
			ValidTo:           now.Add(v.validFor),
			IsActive:          true,
		}); err != nil {
			return fmt.Errorf("seed voucher %s: %w", v.code, err)
		}
	}

	slog.Info("seed complete",
		slog.Int("categories", len(categories)),
		slog.Int("books", len(books)),
		slog.Int("vouchers", len(vouchers)))
	return nil
}
