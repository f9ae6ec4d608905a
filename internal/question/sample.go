package question

// SampleQuestions is the built-in demo bank served when neither a stored
// set nor the generator is available. Physics, grade 12, mirroring the
// kind of content taught with the live show format.
func SampleQuestions() []Question {
	return []Question{
		{
			ID:      "sample-1",
			Content: "Một vật dao động điều hòa với chu kì T = 2s. Tần số góc của dao động là bao nhiêu?",
			Type:    TypeMCQ,
			Options: []string{"π rad/s", "2π rad/s", "4π rad/s", "0,5π rad/s"},
			Answer:  "π rad/s",
			Explanation: "ω = 2π/T = 2π/2 = π rad/s.",
			Difficulty:  DifficultyEasy,
			Topic:       "Dao động cơ",
		},
		{
			ID:      "sample-2",
			Content: "Sóng cơ truyền được trong chân không.",
			Type:    TypeTrueFalse,
			Options: []string{"True", "False"},
			Answer:  "False",
			Explanation: "Sóng cơ cần môi trường vật chất để truyền; chỉ sóng điện từ truyền được trong chân không.",
			Difficulty:  DifficultyEasy,
			Topic:       "Sóng cơ",
		},
		{
			ID:      "sample-3",
			Content: "Đặt điện áp xoay chiều u = 220√2·cos(100πt) V vào hai đầu điện trở R = 110 Ω. Cường độ dòng điện hiệu dụng qua mạch bằng bao nhiêu ampe?",
			Type:    TypeShort,
			Answer:  "2",
			Explanation: "I = U/R = 220/110 = 2 A.",
			Difficulty:  DifficultyMedium,
			Topic:       "Dòng điện xoay chiều",
		},
		{
			ID:      "sample-4",
			Content: "Trong thí nghiệm Y-âng về giao thoa ánh sáng, khoảng vân sẽ thay đổi thế nào khi tăng khoảng cách giữa hai khe?",
			Type:    TypeMCQ,
			Options: []string{"Tăng", "Giảm", "Không đổi", "Tăng rồi giảm"},
			Answer:  "Giảm",
			Explanation: "i = λD/a, nên i tỉ lệ nghịch với khoảng cách a giữa hai khe.",
			Difficulty:  DifficultyMedium,
			Topic:       "Sóng ánh sáng",
		},
		{
			ID:      "sample-5",
			Content: "Hạt nhân có độ hụt khối càng lớn thì năng lượng liên kết càng lớn.",
			Type:    TypeTrueFalse,
			Options: []string{"True", "False"},
			Answer:  "True",
			Explanation: "E_lk = Δm·c², năng lượng liên kết tỉ lệ thuận với độ hụt khối.",
			Difficulty:  DifficultyMedium,
			Topic:       "Vật lý hạt nhân",
		},
		{
			ID:      "sample-6",
			Content: "Một con lắc lò xo gồm vật m = 100 g và lò xo có độ cứng k = 100 N/m. Chu kì dao động của con lắc xấp xỉ bao nhiêu giây?",
			Type:    TypeMCQ,
			Options: []string{"0,2 s", "0,63 s", "1 s", "2 s"},
			Answer:  "0,2 s",
			Explanation: "T = 2π√(m/k) = 2π√(0,1/100) ≈ 0,2 s.",
			Difficulty:  DifficultyHard,
			Topic:       "Dao động cơ",
		},
		{
			ID:      "sample-7",
			Content: "Giới hạn quang điện của một kim loại là 0,5 μm. Công thoát electron khỏi kim loại đó xấp xỉ bao nhiêu eV?",
			Type:    TypeShort,
			Answer:  "2,48",
			Explanation: "A = hc/λ₀ = (6,625·10⁻³⁴ × 3·10⁸)/(0,5·10⁻⁶) ≈ 3,975·10⁻¹⁹ J ≈ 2,48 eV.",
			Difficulty:  DifficultyHard,
			Topic:       "Lượng tử ánh sáng",
		},
		{
			ID:      "sample-8",
			Content: "Trong mạch dao động LC lí tưởng, đại lượng nào sau đây biến thiên cùng pha với điện tích trên tụ điện?",
			Type:    TypeMCQ,
			Options: []string{"Hiệu điện thế giữa hai bản tụ", "Cường độ dòng điện", "Năng lượng từ trường", "Năng lượng điện trường"},
			Answer:  "Hiệu điện thế giữa hai bản tụ",
			Explanation: "u = q/C nên u cùng pha với q; dòng điện i sớm pha π/2 so với q.",
			Difficulty:  DifficultyHard,
			Topic:       "Dao động điện từ",
		},
	}
}
